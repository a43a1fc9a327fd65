package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodWallet  PaymentMethod = "wallet"
	MethodGateway PaymentMethod = "gateway"
)

func (m PaymentMethod) Valid() bool { return m == MethodWallet || m == MethodGateway }

type PaymentStatus string

const (
	PaymentCompleted     PaymentStatus = "completed"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentPartialRefund PaymentStatus = "partial_refund"
)

type RefundState string

const (
	RefundNone    RefundState = "none"
	RefundPartial RefundState = "partial"
	RefundFull    RefundState = "full"
)

// Payment settles exactly one booking.  RefundAmount is cumulative and
// never exceeds Amount.
type Payment struct {
	ID              uint64          `json:"id"`
	BookingID       uint64          `json:"booking_id"`
	UserID          uint64          `json:"user_id"`
	Method          PaymentMethod   `json:"method"`
	GatewayRef      string          `json:"gateway_ref"`
	GatewayResponse string          `json:"gateway_response,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Status          PaymentStatus   `json:"status"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	RefundStatus    RefundState     `json:"refund_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Refundable is what can still be returned to the payer.
func (p Payment) Refundable() decimal.Decimal {
	r := p.Amount.Sub(p.RefundAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// ApplyRefund returns the refund totals after adding amount.
func (p Payment) ApplyRefund(amount decimal.Decimal) (decimal.Decimal, RefundState, PaymentStatus) {
	return refundTotals(p.Amount, p.RefundAmount.Add(amount))
}

// RevertRefund returns the refund totals after a failed gateway refund of
// amount is taken back out.
func (p Payment) RevertRefund(amount decimal.Decimal) (decimal.Decimal, RefundState, PaymentStatus) {
	total := p.RefundAmount.Sub(amount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return refundTotals(p.Amount, total)
}

func refundTotals(amount, refunded decimal.Decimal) (decimal.Decimal, RefundState, PaymentStatus) {
	switch {
	case refunded.IsZero():
		return refunded, RefundNone, PaymentCompleted
	case refunded.GreaterThanOrEqual(amount):
		return amount, RefundFull, PaymentRefunded
	default:
		return refunded, RefundPartial, PaymentPartialRefund
	}
}
