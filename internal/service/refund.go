package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// RefundService runs the refund request workflow and manual refunds.
type RefundService struct {
	*core
	wallet *WalletService
}

var half = decimal.RequireFromString("0.5")

// ExpectedRefund applies the refund policy.  Cancellations are refunded in
// full seven or more days before the start date, half three to six days
// before, and not at all later.  Other request types default to the full
// payment amount.
func ExpectedRefund(t model.RequestType, paymentAmount decimal.Decimal, startDate, today time.Time) decimal.Decimal {
	if t != model.RequestCancellation {
		return paymentAmount
	}
	days := daysBetween(today, startDate)
	switch {
	case days >= 7:
		return paymentAmount
	case days >= 3:
		return paymentAmount.Mul(half).Round(2)
	default:
		return decimal.Zero
	}
}

type RefundRequestInput struct {
	UserID    uint64
	BookingID uint64
	Type      model.RequestType
	Reason    string
}

// RequestRefund files a refund request for a booking the user owns.  The
// booking row is locked so two concurrent requests for the same booking
// serialise, and the table's open-request key backs that up.
func (s *RefundService) RequestRefund(ctx context.Context, in RefundRequestInput) (model.RefundRequest, error) {
	var v validator
	v.check(in.UserID != 0, "user_id", "is required")
	v.check(in.BookingID != 0, "booking_id", "is required")
	v.check(in.Type.Valid(), "request_type", "must be one of cancellation, service_issue, duplicate_payment, other")
	v.check(len(in.Reason) <= 500, "reason", "must be at most 500 characters")
	if err := v.err(); err != nil {
		return model.RefundRequest{}, err
	}

	var (
		out notify.Outbox
		req model.RefundRequest
	)
	err := s.inTx(ctx, "request_refund", &out, func(ctx context.Context, tx *sql.Tx) error {
		b, err := s.repos.Bookings.GetForUpdate(ctx, tx, in.BookingID)
		if err != nil {
			return translate(err, ErrBookingNotFound, "lock booking")
		}
		if b.UserID != in.UserID {
			return ErrBookingNotFound
		}

		var paymentID *uint64
		expected := decimal.Zero
		p, err := s.repos.Payments.GetByBookingForUpdate(ctx, tx, b.ID)
		switch {
		case err == nil:
			if p.RefundStatus == model.RefundFull {
				return ErrAlreadyRefunded
			}
			paymentID = &p.ID
			expected = decimal.Min(ExpectedRefund(in.Type, p.Amount, b.StartDate, s.today()), p.Refundable())
		case errors.Is(err, repository.ErrNotFound):
		default:
			return fmt.Errorf("load payment: %w", err)
		}

		open, err := s.repos.Requests.HasOpen(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("check open requests: %w", err)
		}
		if open {
			return ErrAlreadyRequested
		}

		req = model.RefundRequest{
			UserID:         in.UserID,
			BookingID:      b.ID,
			PaymentID:      paymentID,
			Type:           in.Type,
			Reason:         strings.TrimSpace(in.Reason),
			ExpectedAmount: expected,
			Status:         model.RequestPending,
		}
		if err := s.repos.Requests.InsertTx(ctx, tx, &req); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyRequested
			}
			return fmt.Errorf("insert refund request: %w", err)
		}
		out.User(notify.Notification{
			Target:   notify.Direct(req.UserID),
			Title:    "Refund request submitted",
			Message:  fmt.Sprintf("Your refund request #%d for booking #%d was received. Expected refund: %s.", req.ID, b.ID, money(expected)),
			Category: "refund",
		})
		out.Admin(notify.AdminNotification{
			Title:     "New refund request",
			Message:   fmt.Sprintf("User %d requested a %s refund of %s for booking #%d.", req.UserID, req.Type, money(expected), b.ID),
			Category:  "refund",
			RelatedID: strconv.FormatUint(req.ID, 10),
		})
		return nil
	})
	return req, err
}

// WithdrawRefundRequest deletes a pending request owned by the user.
func (s *RefundService) WithdrawRefundRequest(ctx context.Context, requestID, userID uint64) error {
	return s.inTx(ctx, "withdraw_refund_request", nil, func(ctx context.Context, tx *sql.Tx) error {
		req, err := s.repos.Requests.GetForUpdate(ctx, tx, requestID)
		if err != nil {
			return translate(err, ErrRequestNotFound, "lock refund request")
		}
		if req.UserID != userID {
			return ErrRequestNotFound
		}
		if req.Status != model.RequestPending {
			return ErrInvalidStatus
		}
		if err := s.repos.Requests.Delete(ctx, tx, req.ID); err != nil {
			return fmt.Errorf("delete refund request: %w", err)
		}
		return nil
	})
}

type ReviewInput struct {
	RequestID  uint64
	ReviewerID uint64
	Decision   model.RequestStatus
	Notes      string
	Method     model.PaymentMethod
}

// ReviewRefund records an admin decision.  Approval executes the refund,
// updates the payment, cancels the booking for cancellation requests and
// completes the request, all in one transaction.
func (s *RefundService) ReviewRefund(ctx context.Context, in ReviewInput) (model.RefundRequest, error) {
	switch in.Decision {
	case model.RequestApproved, model.RequestRejected, model.RequestUnderReview:
	default:
		return model.RefundRequest{}, ErrInvalidStatus
	}
	if in.Method == "" {
		in.Method = model.MethodWallet
	}
	if !in.Method.Valid() {
		return model.RefundRequest{}, ErrInvalidMethod
	}

	var (
		out notify.Outbox
		req model.RefundRequest
	)
	err := s.inTx(ctx, "review_refund", &out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		req, err = s.repos.Requests.GetForUpdate(ctx, tx, in.RequestID)
		if err != nil {
			return translate(err, ErrRequestNotFound, "lock refund request")
		}
		if !req.Status.CanMoveTo(in.Decision) {
			return ErrInvalidStatus
		}
		review := repository.RequestReview{Status: in.Decision, ReviewerID: in.ReviewerID, Notes: strings.TrimSpace(in.Notes)}

		switch in.Decision {
		case model.RequestUnderReview:
			out.User(notify.Notification{
				Target:   notify.Direct(req.UserID),
				Title:    "Refund request under review",
				Message:  fmt.Sprintf("Your refund request #%d is being reviewed.", req.ID),
				Category: "refund",
			})
		case model.RequestRejected:
			msg := fmt.Sprintf("Your refund request #%d was rejected.", req.ID)
			if review.Notes != "" {
				msg += " Notes: " + review.Notes
			}
			out.User(notify.Notification{Target: notify.Direct(req.UserID), Title: "Refund request rejected", Message: msg, Category: "refund"})
		case model.RequestApproved:
			credited, refundID, err := s.approveTx(ctx, tx, req, in)
			if err != nil {
				return err
			}
			review.Status = model.RequestCompleted
			review.RefundID = refundID
			out.User(notify.Notification{
				Target:   notify.Direct(req.UserID),
				Title:    "Refund approved",
				Message:  fmt.Sprintf("Your refund request #%d was approved. Refund amount: %s.", req.ID, money(credited)),
				Category: "refund",
			})
			out.Admin(notify.AdminNotification{
				Title:     "Refund approved",
				Message:   fmt.Sprintf("Refund request #%d approved for %s by admin %d.", req.ID, money(credited), in.ReviewerID),
				Category:  "refund",
				RelatedID: strconv.FormatUint(req.ID, 10),
			})
		}

		if err := s.repos.Requests.Review(ctx, tx, req.ID, review); err != nil {
			return fmt.Errorf("update refund request: %w", err)
		}
		req.Status = review.Status
		req.ReviewerID = &in.ReviewerID
		req.AdminNotes = review.Notes
		req.RefundID = review.RefundID
		return nil
	})
	return req, err
}

// approveTx executes an approved request and returns the refunded amount
// and the refund created, if any.
func (s *RefundService) approveTx(ctx context.Context, tx repository.DBTX, req model.RefundRequest, in ReviewInput) (decimal.Decimal, *uint64, error) {
	amount := req.ExpectedAmount
	var refundID *uint64
	if req.PaymentID != nil && amount.IsPositive() {
		p, err := s.repos.Payments.GetForUpdate(ctx, tx, *req.PaymentID)
		if err != nil {
			return decimal.Zero, nil, translate(err, ErrPaymentNotFound, "lock payment")
		}
		if p.RefundStatus == model.RefundFull {
			return decimal.Zero, nil, ErrAlreadyRefunded
		}
		amount = decimal.Min(amount, p.Refundable())
		reviewer := in.ReviewerID
		f, err := s.executeTx(ctx, tx, p, amount, in.Method, string(req.Type), req.Reason, &reviewer)
		if err != nil {
			return decimal.Zero, nil, err
		}
		refundID = &f.ID
	} else {
		amount = decimal.Zero
	}

	if req.Type == model.RequestCancellation {
		b, err := s.repos.Bookings.GetForUpdate(ctx, tx, req.BookingID)
		if err != nil {
			return decimal.Zero, nil, translate(err, ErrBookingNotFound, "lock booking")
		}
		if b.Status != model.BookingCancelled {
			if err := s.repos.Bookings.UpdateStatus(ctx, tx, b.ID, model.BookingCancelled); err != nil {
				return decimal.Zero, nil, fmt.Errorf("cancel booking: %w", err)
			}
			if _, err := s.repos.Seats.SyncStatus(ctx, tx, b.SeatID, s.today()); err != nil {
				return decimal.Zero, nil, err
			}
		}
	}
	return amount, refundID, nil
}

// executeTx creates the refund for a locked payment, credits the wallet
// when the refund goes there, and updates the payment's refund totals.
func (s *RefundService) executeTx(ctx context.Context, tx repository.DBTX, p model.Payment, amount decimal.Decimal, method model.PaymentMethod, refundType, reason string, by *uint64) (model.Refund, error) {
	f := model.Refund{
		PaymentID:   p.ID,
		BookingID:   p.BookingID,
		UserID:      p.UserID,
		Amount:      amount,
		Method:      method,
		Type:        refundType,
		Reason:      reason,
		Status:      model.RefundProcessing,
		ProcessedBy: by,
	}
	if err := s.repos.Refunds.InsertTx(ctx, tx, &f); err != nil {
		return model.Refund{}, fmt.Errorf("insert refund: %w", err)
	}
	if method == model.MethodWallet {
		if _, err := s.wallet.ApplyLedgerEntry(ctx, tx, Entry{
			UserID:      p.UserID,
			Type:        model.Credit,
			Amount:      amount,
			Description: fmt.Sprintf("Refund for booking #%d", p.BookingID),
			RefType:     "refund",
			RefID:       strconv.FormatUint(f.ID, 10),
		}); err != nil {
			return model.Refund{}, err
		}
		if err := s.repos.Refunds.SetStatus(ctx, tx, f.ID, model.RefundCompleted); err != nil {
			return model.Refund{}, fmt.Errorf("complete refund: %w", err)
		}
		f.Status = model.RefundCompleted
	}
	refunded, state, status := p.ApplyRefund(amount)
	if err := s.repos.Payments.SetRefundTotals(ctx, tx, p.ID, refunded, state, status); err != nil {
		return model.Refund{}, fmt.Errorf("update payment refund: %w", err)
	}
	return f, nil
}

type ManualRefundInput struct {
	PaymentID uint64
	Amount    decimal.Decimal
	Type      string
	Method    model.PaymentMethod
	Reason    string
	AdminID   uint64
}

// ProcessRefund issues a refund directly against a payment without a
// request.
func (s *RefundService) ProcessRefund(ctx context.Context, in ManualRefundInput) (model.Refund, error) {
	if in.PaymentID == 0 {
		return model.Refund{}, &ValidationError{Fields: []FieldError{{Field: "payment_id", Message: "is required"}}}
	}
	if !in.Amount.IsPositive() || !validMoney(in.Amount) {
		return model.Refund{}, ErrInvalidAmount
	}
	if in.Method == "" {
		in.Method = model.MethodWallet
	}
	if !in.Method.Valid() {
		return model.Refund{}, ErrInvalidMethod
	}
	if strings.TrimSpace(in.Type) == "" {
		in.Type = "manual"
	}

	var (
		out notify.Outbox
		f   model.Refund
	)
	err := s.inTx(ctx, "process_refund", &out, func(ctx context.Context, tx *sql.Tx) error {
		p, err := s.repos.Payments.GetForUpdate(ctx, tx, in.PaymentID)
		if err != nil {
			return translate(err, ErrPaymentNotFound, "lock payment")
		}
		if p.RefundStatus == model.RefundFull {
			return ErrAlreadyRefunded
		}
		if in.Amount.GreaterThan(p.Amount) || in.Amount.GreaterThan(p.Refundable()) {
			return ErrInvalidAmount
		}
		admin := in.AdminID
		f, err = s.executeTx(ctx, tx, p, in.Amount, in.Method, in.Type, strings.TrimSpace(in.Reason), &admin)
		if err != nil {
			return err
		}
		out.User(notify.Notification{
			Target:   notify.Direct(p.UserID),
			Title:    "Refund issued",
			Message:  fmt.Sprintf("A refund of %s for booking #%d was issued to your %s.", money(in.Amount), p.BookingID, in.Method),
			Category: "refund",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Manual refund processed",
			Message:   fmt.Sprintf("Admin %d refunded %s of payment #%d.", in.AdminID, money(in.Amount), p.ID),
			Category:  "refund",
			RelatedID: strconv.FormatUint(f.ID, 10),
		})
		return nil
	})
	return f, err
}

// ConfirmGatewayRefund records the gateway's answer for a refund sent back
// to the original payment method.  A failed refund gives its amount back
// to the payment's refundable balance.
func (s *RefundService) ConfirmGatewayRefund(ctx context.Context, refundID uint64, succeeded bool) (model.Refund, error) {
	var (
		out notify.Outbox
		f   model.Refund
	)
	err := s.inTx(ctx, "confirm_gateway_refund", &out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		f, err = s.repos.Refunds.GetForUpdate(ctx, tx, refundID)
		if err != nil {
			return translate(err, ErrRefundNotFound, "lock refund")
		}
		if f.Status != model.RefundProcessing || f.Method != model.MethodGateway {
			return ErrInvalidStatus
		}
		next := model.RefundCompleted
		if !succeeded {
			next = model.RefundFailed
			p, err := s.repos.Payments.GetForUpdate(ctx, tx, f.PaymentID)
			if err != nil {
				return translate(err, ErrPaymentNotFound, "lock payment")
			}
			refunded, state, status := p.RevertRefund(f.Amount)
			if err := s.repos.Payments.SetRefundTotals(ctx, tx, p.ID, refunded, state, status); err != nil {
				return fmt.Errorf("revert payment refund: %w", err)
			}
		}
		if err := s.repos.Refunds.SetStatus(ctx, tx, f.ID, next); err != nil {
			return fmt.Errorf("update refund: %w", err)
		}
		f.Status = next

		title, msg := "Refund completed", fmt.Sprintf("Your refund of %s for booking #%d has been sent.", money(f.Amount), f.BookingID)
		if !succeeded {
			title, msg = "Refund failed", fmt.Sprintf("Your refund of %s for booking #%d could not be completed. Our team will contact you.", money(f.Amount), f.BookingID)
			out.Admin(notify.AdminNotification{
				Title:     "Gateway refund failed",
				Message:   fmt.Sprintf("Refund #%d of %s failed at the gateway.", f.ID, money(f.Amount)),
				Category:  "refund",
				RelatedID: strconv.FormatUint(f.ID, 10),
				Priority:  notify.PriorityHigh,
			})
		}
		out.User(notify.Notification{Target: notify.Direct(f.UserID), Title: title, Message: msg, Category: "refund"})
		return nil
	})
	return f, err
}
