package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a time-bound subscription product a seat is booked under.
type Plan struct {
	ID           uint64          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EndDate returns the last covered day for a booking starting on start.
func (p Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, 0, p.DurationDays)
}
