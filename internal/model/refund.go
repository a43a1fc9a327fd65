package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestUnderReview RequestStatus = "under_review"
	RequestApproved    RequestStatus = "approved"
	RequestRejected    RequestStatus = "rejected"
	RequestCompleted   RequestStatus = "completed"
)

// Open reports whether the request still blocks a new one for its booking.
func (s RequestStatus) Open() bool {
	return s == RequestPending || s == RequestUnderReview
}

// CanMoveTo encodes the refund request state machine.  approved -> completed
// is system driven and happens in the approving transaction.
func (s RequestStatus) CanMoveTo(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestUnderReview || next == RequestApproved || next == RequestRejected
	case RequestUnderReview:
		return next == RequestApproved || next == RequestRejected
	case RequestApproved:
		return next == RequestCompleted
	}
	return false
}

type RequestType string

const (
	RequestCancellation     RequestType = "cancellation"
	RequestServiceIssue     RequestType = "service_issue"
	RequestDuplicatePayment RequestType = "duplicate_payment"
	RequestOther            RequestType = "other"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestCancellation, RequestServiceIssue, RequestDuplicatePayment, RequestOther:
		return true
	}
	return false
}

// RefundRequest is the user-submitted workflow item; the money moves only
// through the Refund it produces on approval.
type RefundRequest struct {
	ID             uint64          `json:"id"`
	UserID         uint64          `json:"user_id"`
	BookingID      uint64          `json:"booking_id"`
	PaymentID      *uint64         `json:"payment_id,omitempty"`
	Type           RequestType     `json:"request_type"`
	Reason         string          `json:"reason"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Status         RequestStatus   `json:"status"`
	ReviewerID     *uint64         `json:"reviewer_id,omitempty"`
	AdminNotes     string          `json:"admin_notes,omitempty"`
	RefundID       *uint64         `json:"refund_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type RefundStatus string

const (
	RefundProcessing RefundStatus = "processing"
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

// Refund is an executed (or in-flight) return of money for a payment.
type Refund struct {
	ID          uint64          `json:"id"`
	PaymentID   uint64          `json:"payment_id"`
	BookingID   uint64          `json:"booking_id"`
	UserID      uint64          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	Type        string          `json:"type"`
	Reason      string          `json:"reason"`
	Status      RefundStatus    `json:"status"`
	ProcessedBy *uint64         `json:"processed_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
