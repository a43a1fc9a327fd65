package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingActive    BookingStatus = "active"
	BookingExpired   BookingStatus = "expired"
	BookingCancelled BookingStatus = "cancelled"
)

// Live reports whether the booking still claims its seat.
func (s BookingStatus) Live() bool {
	return s == BookingPending || s == BookingActive
}

// Booking is a user's claim on a seat for [StartDate, EndDate] under a plan.
// Lifecycle: pending -> active on settlement, active -> expired by the
// scheduler once EndDate has passed, any state -> cancelled.
type Booking struct {
	ID             uint64          `json:"id"`
	UserID         uint64          `json:"user_id"`
	PlanID         uint64          `json:"plan_id"`
	SeatID         uint64          `json:"seat_id"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Status         BookingStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type AdvanceStatus string

const (
	AdvanceScheduled AdvanceStatus = "scheduled"
	AdvanceConverted AdvanceStatus = "converted"
	AdvanceCancelled AdvanceStatus = "cancelled"
)

// AdvanceBooking records the intent to book a seat from a future date.  It
// does not hold the seat; converting it runs the normal booking path.
type AdvanceBooking struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	PlanID    uint64          `json:"plan_id"`
	SeatID    uint64          `json:"seat_id"`
	StartDate time.Time       `json:"start_date"`
	Amount    decimal.Decimal `json:"amount"`
	Status    AdvanceStatus   `json:"status"`
	BookingID *uint64         `json:"booking_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
