package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// BookingService is the seat reservation engine.
type BookingService struct {
	*core
}

// CreateBookingInput describes a booking request.  FinalAmount is the
// post-discount amount due; zero means plan price minus DiscountAmount.
type CreateBookingInput struct {
	UserID         uint64
	PlanID         uint64
	SeatID         uint64
	StartDate      time.Time
	FinalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
}

func (in CreateBookingInput) validate() error {
	var v validator
	v.check(in.UserID != 0, "user_id", "is required")
	v.check(in.PlanID != 0, "plan_id", "is required")
	v.check(in.SeatID != 0, "seat_id", "is required")
	v.check(!in.StartDate.IsZero(), "start_date", "is required")
	v.check(validMoney(in.FinalAmount), "final_amount", "must be a non-negative amount with at most two decimals")
	v.check(validMoney(in.DiscountAmount), "discount_amount", "must be a non-negative amount with at most two decimals")
	return v.err()
}

// bookingAmounts settles final and discount against the plan price so that
// price = final + discount always holds.
func bookingAmounts(price, final, discount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if discount.GreaterThan(price) {
		return decimal.Zero, decimal.Zero, &ValidationError{Fields: []FieldError{{Field: "discount_amount", Message: "must not exceed the plan price"}}}
	}
	switch {
	case final.IsZero():
		return price.Sub(discount), discount, nil
	case discount.IsZero():
		if final.GreaterThan(price) {
			return decimal.Zero, decimal.Zero, &ValidationError{Fields: []FieldError{{Field: "final_amount", Message: "must not exceed the plan price"}}}
		}
		return final, price.Sub(final), nil
	case !final.Equal(price.Sub(discount)):
		return decimal.Zero, decimal.Zero, &ValidationError{Fields: []FieldError{{Field: "final_amount", Message: "must equal the plan price minus the discount"}}}
	}
	return final, discount, nil
}

// CreateBooking reserves a seat for [start, start+plan.duration_days].
// The seat row is locked for the whole check-then-insert sequence, so two
// overlapping requests for one seat cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	if err := in.validate(); err != nil {
		return model.Booking{}, err
	}
	var (
		out notify.Outbox
		b   model.Booking
	)
	err := s.inTx(ctx, "create_booking", &out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		b, err = s.createTx(ctx, tx, in, &out)
		return err
	})
	return b, err
}

// createTx runs the booking algorithm inside an existing transaction.
func (s *BookingService) createTx(ctx context.Context, tx repository.DBTX, in CreateBookingInput, out *notify.Outbox) (model.Booking, error) {
	today := s.today()
	start := dateOf(in.StartDate)
	if start.Before(today) {
		return model.Booking{}, &ValidationError{Fields: []FieldError{{Field: "start_date", Message: "must not be in the past"}}}
	}

	// The seat lock must be the first read of the transaction: a plain read
	// before it would fix the snapshot ahead of a competing commit.
	seat, err := s.repos.Seats.GetForUpdate(ctx, tx, in.SeatID)
	if err != nil {
		return model.Booking{}, translate(err, ErrSeatNotFound, "lock seat")
	}
	plan, err := s.repos.Plans.GetByID(ctx, tx, in.PlanID)
	if err != nil {
		return model.Booking{}, translate(err, ErrPlanNotFound, "load plan")
	}
	if !plan.IsActive {
		return model.Booking{}, ErrPlanInactive
	}
	final, discount, err := bookingAmounts(plan.Price, in.FinalAmount, in.DiscountAmount)
	if err != nil {
		return model.Booking{}, err
	}

	end := plan.EndDate(start)
	n, err := s.repos.Bookings.CountOverlapping(ctx, tx, seat.ID, start, end)
	if err != nil {
		return model.Booking{}, fmt.Errorf("overlap check: %w", err)
	}
	if n > 0 {
		return model.Booking{}, ErrSeatUnavailable
	}

	b := model.Booking{
		UserID:         in.UserID,
		PlanID:         plan.ID,
		SeatID:         seat.ID,
		StartDate:      start,
		EndDate:        end,
		TotalAmount:    plan.Price,
		DiscountAmount: discount,
		FinalAmount:    final,
		Status:         model.BookingPending,
	}
	if err := s.repos.Bookings.InsertTx(ctx, tx, &b); err != nil {
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	if _, err := s.repos.Seats.SyncStatus(ctx, tx, seat.ID, today); err != nil {
		return model.Booking{}, err
	}

	out.User(notify.Notification{
		Target:   notify.Direct(b.UserID),
		Title:    "Booking created",
		Message:  fmt.Sprintf("Seat %s is reserved from %s to %s under %s. Amount due: %s.", seat.SeatNumber, day(start), day(end), plan.Name, money(final)),
		Category: "booking",
	})
	out.Admin(notify.AdminNotification{
		Title:     "New booking",
		Message:   fmt.Sprintf("User %d booked seat %s from %s to %s.", b.UserID, seat.SeatNumber, day(start), day(end)),
		Category:  "booking",
		RelatedID: strconv.FormatUint(b.ID, 10),
	})
	return b, nil
}

// CancelBooking cancels a booking in any state except cancelled and frees
// the seat when nothing else holds it.  Users may only cancel their own
// bookings.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uint64, actor Actor) (model.Booking, error) {
	var (
		out notify.Outbox
		b   model.Booking
	)
	err := s.inTx(ctx, "cancel_booking", &out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		b, err = s.repos.Bookings.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return translate(err, ErrBookingNotFound, "lock booking")
		}
		if !actor.owns(b.UserID) {
			return ErrBookingNotFound
		}
		if b.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		if err := s.cancelTx(ctx, tx, &b); err != nil {
			return err
		}
		out.User(notify.Notification{
			Target:   notify.Direct(b.UserID),
			Title:    "Booking cancelled",
			Message:  fmt.Sprintf("Your booking #%d (%s to %s) was cancelled.", b.ID, day(b.StartDate), day(b.EndDate)),
			Category: "booking",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Booking cancelled",
			Message:   fmt.Sprintf("Booking #%d of user %d was cancelled.", b.ID, b.UserID),
			Category:  "booking",
			RelatedID: strconv.FormatUint(b.ID, 10),
		})
		return nil
	})
	return b, err
}

// cancelTx marks a locked booking cancelled and resyncs its seat.
func (s *BookingService) cancelTx(ctx context.Context, tx repository.DBTX, b *model.Booking) error {
	if err := s.repos.Bookings.UpdateStatus(ctx, tx, b.ID, model.BookingCancelled); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	b.Status = model.BookingCancelled
	_, err := s.repos.Seats.SyncStatus(ctx, tx, b.SeatID, s.today())
	return err
}

// ExpireBooking moves an active booking to expired and resyncs its seat.
// It reports false when the booking had already left the active state.
func (s *BookingService) ExpireBooking(ctx context.Context, bookingID uint64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "expire_booking", nil, func(ctx context.Context, tx *sql.Tx) error {
		b, err := s.repos.Bookings.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return translate(err, ErrBookingNotFound, "lock booking")
		}
		changed, err = s.repos.Bookings.ExpireTx(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("expire booking: %w", err)
		}
		if !changed {
			return nil
		}
		_, err = s.repos.Seats.SyncStatus(ctx, tx, b.SeatID, s.today())
		return err
	})
	return changed, err
}

// GetBooking returns a booking visible to the actor.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint64, actor Actor) (model.Booking, error) {
	b, err := s.repos.Bookings.Get(ctx, s.db, bookingID)
	if err != nil {
		return model.Booking{}, translate(err, ErrBookingNotFound, "load booking")
	}
	if !actor.owns(b.UserID) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, nil
}

// ListUserBookings returns one page of a user's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64, page, limit int) ([]model.Booking, error) {
	lim, off := Paging(page, limit)
	out, err := s.repos.Bookings.ListByUser(ctx, userID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// SeatCounts returns the number of seats per derived status.
func (s *BookingService) SeatCounts(ctx context.Context) (map[string]int, error) {
	seats, err := s.repos.Seats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	counts := map[string]int{}
	for _, st := range seats {
		counts[string(st.Status)]++
	}
	return counts, nil
}
