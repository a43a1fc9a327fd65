package service

import (
	"context"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// SweepStore is the scheduler's view of the ledger.
type SweepStore struct {
	repos    Repos
	bookings *BookingService
}

func (l *Ledger) SweepStore() *SweepStore {
	return &SweepStore{repos: l.Bookings.repos, bookings: l.Bookings}
}

func (s *SweepStore) BirthdaysOn(ctx context.Context, day time.Time) ([]model.User, error) {
	return s.repos.Users.BirthdaysOn(ctx, day)
}

func (s *SweepStore) ActiveEndingBetween(ctx context.Context, from, to time.Time) ([]repository.BookingNotice, error) {
	return s.repos.Bookings.ActiveEndingBetween(ctx, from, to)
}

func (s *SweepStore) ActiveEndedOn(ctx context.Context, day time.Time) ([]repository.BookingNotice, error) {
	return s.repos.Bookings.ActiveEndedOn(ctx, day)
}

func (s *SweepStore) ScheduledStartingOn(ctx context.Context, days []time.Time) ([]repository.AdvanceNotice, error) {
	return s.repos.Advance.ScheduledStartingOn(ctx, days)
}

func (s *SweepStore) ExpireBooking(ctx context.Context, bookingID uint64) (bool, error) {
	return s.bookings.ExpireBooking(ctx, bookingID)
}

func (s *SweepStore) SeatCounts(ctx context.Context) (map[string]int, error) {
	return s.bookings.SeatCounts(ctx)
}
