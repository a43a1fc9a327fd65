// Package scheduler runs the ledger's periodic sweeps: birthday greetings,
// expiry and advance-booking reminders, and the active -> expired
// transition of bookings whose end date has passed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/iliyamo/seat-ledger/internal/metrics"
	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// Store is what the sweeps need from the ledger.
type Store interface {
	BirthdaysOn(ctx context.Context, day time.Time) ([]model.User, error)
	ActiveEndingBetween(ctx context.Context, from, to time.Time) ([]repository.BookingNotice, error)
	ActiveEndedOn(ctx context.Context, day time.Time) ([]repository.BookingNotice, error)
	ScheduledStartingOn(ctx context.Context, days []time.Time) ([]repository.AdvanceNotice, error)
	ExpireBooking(ctx context.Context, bookingID uint64) (bool, error)
	SeatCounts(ctx context.Context) (map[string]int, error)
}

const lockKey = "sweep:lock"

// advanceReminderDays are the days before start that trigger a reminder.
var advanceReminderDays = []int{1, 3, 7, 15}

type Config struct {
	Interval time.Duration
	Location *time.Location
}

type Scheduler struct {
	store    Store
	marker   Marker
	notify   *notify.Dispatcher
	log      *slog.Logger
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
}

func New(store Store, marker Marker, d *notify.Dispatcher, log *slog.Logger, cfg Config) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		store:    store,
		marker:   marker,
		notify:   d,
		log:      log.With("component", "scheduler"),
		interval: cfg.Interval,
		loc:      cfg.Location,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("sweep round failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type sweep struct {
	name string
	run  func(ctx context.Context, today time.Time) error
}

// RunOnce executes one round of all sweeps.  A failing sweep is logged and
// counted; the remaining sweeps still run.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ok, err := s.marker.Lock(ctx, lockKey, s.interval)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		s.log.Info("sweep round skipped, another instance holds the lock")
		return nil
	}
	defer func() {
		if err := s.marker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.log.Warn("release sweep lock failed", "error", err)
		}
	}()

	today := s.today()
	sweeps := []sweep{
		{"birthday", s.birthdays},
		{"expiry", s.expiryReminders},
		{"advance_booking", s.advanceReminders},
		{"expired_booking", s.expireBookings},
	}
	for _, sw := range sweeps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start := time.Now()
		err := sw.run(ctx, today)
		metrics.TrackSweep(sw.name, err == nil, time.Since(start))
		if err != nil {
			s.log.Error("sweep failed", "sweep", sw.name, "day", today.Format(time.DateOnly), "error", err)
			continue
		}
		s.log.Debug("sweep done", "sweep", sw.name, "took", time.Since(start).String())
	}

	if counts, err := s.store.SeatCounts(ctx); err == nil {
		metrics.SetSeatCounts(counts)
	}
	return nil
}

func (s *Scheduler) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// once emits out the first time (sweep, day, subject) is seen.
func (s *Scheduler) once(ctx context.Context, sweep string, today time.Time, subject string, out *notify.Outbox) error {
	key := fmt.Sprintf("sweep:%s:%s:%s", sweep, today.Format(time.DateOnly), subject)
	first, err := s.marker.Mark(ctx, key)
	if err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	if !first {
		return nil
	}
	s.notify.Flush(ctx, out)
	metrics.TrackSweepNotice(sweep)
	return nil
}

func (s *Scheduler) birthdays(ctx context.Context, today time.Time) error {
	users, err := s.store.BirthdaysOn(ctx, today)
	if err != nil {
		return err
	}
	var errs []error
	for _, u := range users {
		var out notify.Outbox
		out.User(notify.Notification{
			Target:   notify.Direct(u.ID),
			Title:    "Happy Birthday!",
			Message:  fmt.Sprintf("Happy birthday, %s! Wishing you a great year ahead.", u.Name),
			Category: "birthday",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Member birthday",
			Message:   fmt.Sprintf("Today is %s's birthday.", u.Name),
			Category:  "birthday",
			RelatedID: strconv.FormatUint(u.ID, 10),
		})
		errs = append(errs, s.once(ctx, "birthday", today, strconv.FormatUint(u.ID, 10), &out))
	}
	return errors.Join(errs...)
}

// expiryPriority returns the admin tier for a booking ending in days, or
// "" when the admin is not pinged.
func expiryPriority(days int) string {
	switch {
	case days >= 1 && days <= 3:
		return notify.PriorityUrgent
	case days >= 4 && days <= 7:
		return notify.PriorityHigh
	}
	return ""
}

func (s *Scheduler) expiryReminders(ctx context.Context, today time.Time) error {
	list, err := s.store.ActiveEndingBetween(ctx, today.AddDate(0, 0, 1), today.AddDate(0, 0, 15))
	if err != nil {
		return err
	}
	var errs []error
	for _, b := range list {
		days := int(b.EndDate.Sub(today).Hours() / 24)
		if days < 1 || days > 15 {
			continue
		}
		var out notify.Outbox
		out.User(notify.Notification{
			Target:   notify.Direct(b.UserID),
			Title:    "Your booking is ending soon",
			Message:  fmt.Sprintf("Your booking for seat %s ends in %d day(s), on %s.", b.SeatNumber, days, b.EndDate.Format(time.DateOnly)),
			Category: "booking_expiry",
		})
		if prio := expiryPriority(days); prio != "" {
			out.Admin(notify.AdminNotification{
				Title:     "Booking expiring",
				Message:   fmt.Sprintf("%s's booking for seat %s ends in %d day(s).", b.UserName, b.SeatNumber, days),
				Category:  "booking_expiry",
				RelatedID: strconv.FormatUint(b.ID, 10),
				Priority:  prio,
			})
		}
		errs = append(errs, s.once(ctx, "expiry", today, strconv.FormatUint(b.ID, 10), &out))
	}
	return errors.Join(errs...)
}

func (s *Scheduler) advanceReminders(ctx context.Context, today time.Time) error {
	days := make([]time.Time, 0, len(advanceReminderDays))
	for _, d := range advanceReminderDays {
		days = append(days, today.AddDate(0, 0, d))
	}
	list, err := s.store.ScheduledStartingOn(ctx, days)
	if err != nil {
		return err
	}
	var errs []error
	for _, a := range list {
		until := int(a.StartDate.Sub(today).Hours() / 24)
		var out notify.Outbox
		out.User(notify.Notification{
			Target:   notify.Direct(a.UserID),
			Title:    "Upcoming booking reminder",
			Message:  fmt.Sprintf("Your advance booking starts in %d day(s), on %s.", until, a.StartDate.Format(time.DateOnly)),
			Category: "advance_booking",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Advance booking starting",
			Message:   fmt.Sprintf("%s's advance booking #%d starts in %d day(s).", a.UserName, a.ID, until),
			Category:  "advance_booking",
			RelatedID: strconv.FormatUint(a.ID, 10),
		})
		errs = append(errs, s.once(ctx, "advance_booking", today, strconv.FormatUint(a.ID, 10), &out))
	}
	return errors.Join(errs...)
}

// expireBookings transitions bookings that ended yesterday.  The store only
// reports a change for bookings that were still active, so a second run on
// the same day neither transitions nor notifies again.
func (s *Scheduler) expireBookings(ctx context.Context, today time.Time) error {
	list, err := s.store.ActiveEndedOn(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	var errs []error
	for _, b := range list {
		changed, err := s.store.ExpireBooking(ctx, b.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire booking %d: %w", b.ID, err))
			continue
		}
		if !changed {
			continue
		}
		var out notify.Outbox
		out.User(notify.Notification{
			Target:   notify.Direct(b.UserID),
			Title:    "Booking expired",
			Message:  fmt.Sprintf("Your booking for seat %s ended on %s.", b.SeatNumber, b.EndDate.Format(time.DateOnly)),
			Category: "booking_expiry",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Booking expired",
			Message:   fmt.Sprintf("%s's booking for seat %s has expired and the seat was released.", b.UserName, b.SeatNumber),
			Category:  "booking_expiry",
			RelatedID: strconv.FormatUint(b.ID, 10),
		})
		s.notify.Flush(ctx, &out)
		metrics.TrackSweepNotice("expired_booking")
	}
	return errors.Join(errs...)
}
