package model

import "time"

// SeatStatus is the derived availability of a seat.  It is never written
// on its own: the booking engine recomputes it from the seat's live
// bookings inside the same transaction that changes a booking.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatOccupied  SeatStatus = "occupied"
)

// Seat describes a physical seat in the reading hall.
//
// Fields:
//
//	ID         – primary key identifier.
//	SeatNumber – human label such as S01, unique.
//	Section    – floor or section name.
//	Status     – derived status, see SeatStatus.
type Seat struct {
	ID         uint64     `json:"id"`
	SeatNumber string     `json:"seat_number"`
	Section    string     `json:"section"`
	Status     SeatStatus `json:"status"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DeriveSeatStatus maps the number of live, not yet ended bookings on a seat
// to its status.  An active booking wins over a pending one.
func DeriveSeatStatus(active, pending int) SeatStatus {
	switch {
	case active > 0:
		return SeatOccupied
	case pending > 0:
		return SeatReserved
	default:
		return SeatAvailable
	}
}
