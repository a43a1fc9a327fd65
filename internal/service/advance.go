package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
)

// AdvanceService manages bookings scheduled for a future start date.  An
// advance booking does not hold its seat until it is converted.
type AdvanceService struct {
	*core
	bookings *BookingService
}

type AdvanceInput struct {
	UserID    uint64
	PlanID    uint64
	SeatID    uint64
	StartDate time.Time
}

func (s *AdvanceService) CreateAdvanceBooking(ctx context.Context, in AdvanceInput) (model.AdvanceBooking, error) {
	var v validator
	v.check(in.UserID != 0, "user_id", "is required")
	v.check(in.PlanID != 0, "plan_id", "is required")
	v.check(in.SeatID != 0, "seat_id", "is required")
	v.check(!in.StartDate.IsZero(), "start_date", "is required")
	if err := v.err(); err != nil {
		return model.AdvanceBooking{}, err
	}
	start := dateOf(in.StartDate)
	if !start.After(s.today()) {
		return model.AdvanceBooking{}, ErrInvalidDate
	}

	var (
		out notify.Outbox
		a   model.AdvanceBooking
	)
	err := s.inTx(ctx, "create_advance_booking", &out, func(ctx context.Context, tx *sql.Tx) error {
		plan, err := s.repos.Plans.GetByID(ctx, tx, in.PlanID)
		if err != nil {
			return translate(err, ErrPlanNotFound, "load plan")
		}
		if !plan.IsActive {
			return ErrPlanInactive
		}
		seat, err := s.repos.Seats.Get(ctx, tx, in.SeatID)
		if err != nil {
			return translate(err, ErrSeatNotFound, "load seat")
		}
		a = model.AdvanceBooking{
			UserID:    in.UserID,
			PlanID:    plan.ID,
			SeatID:    seat.ID,
			StartDate: start,
			Amount:    plan.Price,
			Status:    model.AdvanceScheduled,
		}
		if err := s.repos.Advance.InsertTx(ctx, tx, &a); err != nil {
			return fmt.Errorf("insert advance booking: %w", err)
		}
		out.User(notify.Notification{
			Target:   notify.Direct(a.UserID),
			Title:    "Advance booking scheduled",
			Message:  fmt.Sprintf("Seat %s is scheduled for %s under %s.", seat.SeatNumber, day(start), plan.Name),
			Category: "advance_booking",
		})
		out.Admin(notify.AdminNotification{
			Title:     "New advance booking",
			Message:   fmt.Sprintf("User %d scheduled seat %s from %s.", a.UserID, seat.SeatNumber, day(start)),
			Category:  "advance_booking",
			RelatedID: strconv.FormatUint(a.ID, 10),
		})
		return nil
	})
	return a, err
}

func (s *AdvanceService) CancelAdvanceBooking(ctx context.Context, id uint64, actor Actor) (model.AdvanceBooking, error) {
	var (
		out notify.Outbox
		a   model.AdvanceBooking
	)
	err := s.inTx(ctx, "cancel_advance_booking", &out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		a, err = s.repos.Advance.GetForUpdate(ctx, tx, id)
		if err != nil {
			return translate(err, ErrAdvanceNotFound, "lock advance booking")
		}
		if !actor.owns(a.UserID) {
			return ErrAdvanceNotFound
		}
		switch a.Status {
		case model.AdvanceCancelled:
			return ErrAlreadyCancelled
		case model.AdvanceConverted:
			return ErrInvalidStatus
		}
		if err := s.repos.Advance.SetStatus(ctx, tx, a.ID, model.AdvanceCancelled, nil); err != nil {
			return fmt.Errorf("cancel advance booking: %w", err)
		}
		a.Status = model.AdvanceCancelled
		out.User(notify.Notification{
			Target:   notify.Direct(a.UserID),
			Title:    "Advance booking cancelled",
			Message:  fmt.Sprintf("Your advance booking #%d for %s was cancelled.", a.ID, day(a.StartDate)),
			Category: "advance_booking",
		})
		return nil
	})
	return a, err
}

// ConvertAdvanceBooking turns a scheduled advance booking into a regular
// pending booking in one transaction.  The seat checks of CreateBooking
// apply unchanged.
func (s *AdvanceService) ConvertAdvanceBooking(ctx context.Context, id uint64) (model.Booking, error) {
	var (
		out notify.Outbox
		b   model.Booking
	)
	err := s.inTx(ctx, "convert_advance_booking", &out, func(ctx context.Context, tx *sql.Tx) error {
		a, err := s.repos.Advance.GetForUpdate(ctx, tx, id)
		if err != nil {
			return translate(err, ErrAdvanceNotFound, "lock advance booking")
		}
		if a.Status != model.AdvanceScheduled {
			return ErrInvalidStatus
		}
		b, err = s.bookings.createTx(ctx, tx, CreateBookingInput{
			UserID:      a.UserID,
			PlanID:      a.PlanID,
			SeatID:      a.SeatID,
			StartDate:   a.StartDate,
			FinalAmount: a.Amount,
		}, &out)
		if err != nil {
			return err
		}
		if err := s.repos.Advance.SetStatus(ctx, tx, a.ID, model.AdvanceConverted, &b.ID); err != nil {
			return fmt.Errorf("convert advance booking: %w", err)
		}
		return nil
	})
	return b, err
}
