package service

import (
	"errors"
	"strings"
)

// Kind classifies a ledger failure for the caller.
type Kind int

const (
	KindSystem Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInsufficientFunds
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindIntegrity:
		return "integrity"
	}
	return "system"
}

type ledgerError struct {
	kind Kind
	msg  string
}

func (e *ledgerError) Error() string { return e.msg }

func newError(kind Kind, msg string) error { return &ledgerError{kind: kind, msg: msg} }

var (
	ErrInvalidInput  = newError(KindValidation, "invalid input")
	ErrInvalidAmount = newError(KindValidation, "invalid amount")
	ErrInvalidDate   = newError(KindValidation, "invalid date")
	ErrInvalidMethod = newError(KindValidation, "invalid payment method")

	ErrInvalidStatus       = newError(KindConflict, "invalid status")
	ErrPlanInactive        = newError(KindConflict, "plan is not active")
	ErrSeatUnavailable     = newError(KindConflict, "seat is not available for the requested dates")
	ErrAlreadyCancelled    = newError(KindConflict, "already cancelled")
	ErrAlreadyPaid         = newError(KindConflict, "booking already paid")
	ErrAlreadyRefunded     = newError(KindConflict, "payment already fully refunded")
	ErrAlreadyRequested    = newError(KindConflict, "an open refund request already exists for this booking")
	ErrInsufficientBalance = newError(KindInsufficientFunds, "insufficient wallet balance")

	ErrPlanNotFound    = newError(KindNotFound, "plan not found")
	ErrSeatNotFound    = newError(KindNotFound, "seat not found")
	ErrBookingNotFound = newError(KindNotFound, "booking not found")
	ErrAdvanceNotFound = newError(KindNotFound, "advance booking not found")
	ErrUserNotFound    = newError(KindNotFound, "user not found")
	ErrPaymentNotFound = newError(KindNotFound, "payment not found")
	ErrRequestNotFound = newError(KindNotFound, "refund request not found")
	ErrRefundNotFound  = newError(KindNotFound, "refund not found")

	ErrLedgerMismatch = newError(KindIntegrity, "wallet ledger does not match cached balance")
)

// KindOf classifies err.  Anything not raised by the ledger itself is a
// system failure.
func KindOf(err error) Kind {
	var le *ledgerError
	if errors.As(err, &le) {
		return le.kind
	}
	return KindSystem
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a request.  It unwraps to
// ErrInvalidInput.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// validator accumulates field errors.
type validator struct {
	fields []FieldError
}

func (v *validator) check(ok bool, field, msg string) {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: msg})
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
