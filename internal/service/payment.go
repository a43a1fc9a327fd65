package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// PaymentService settles bookings.
type PaymentService struct {
	*core
	wallet *WalletService
}

type SettleInput struct {
	UserID          uint64
	BookingID       uint64
	Amount          decimal.Decimal
	Method          model.PaymentMethod
	GatewayRef      string
	GatewayResponse string
}

func (in SettleInput) validate() error {
	var v validator
	v.check(in.UserID != 0, "user_id", "is required")
	v.check(in.BookingID != 0, "booking_id", "is required")
	if err := v.err(); err != nil {
		return err
	}
	if !in.Amount.IsPositive() || !validMoney(in.Amount) {
		return ErrInvalidAmount
	}
	if !in.Method.Valid() {
		return ErrInvalidMethod
	}
	if in.Method == model.MethodGateway && strings.TrimSpace(in.GatewayRef) == "" {
		return &ValidationError{Fields: []FieldError{{Field: "gateway_ref", Message: "is required for gateway payments"}}}
	}
	return nil
}

// SettlePayment pays a pending booking.  The wallet debit and its ledger
// row, the payment, the booking transition and the seat update commit
// together or not at all.
func (s *PaymentService) SettlePayment(ctx context.Context, in SettleInput) (model.Payment, error) {
	if err := in.validate(); err != nil {
		return model.Payment{}, err
	}
	var (
		out notify.Outbox
		p   model.Payment
	)
	err := s.inTx(ctx, "settle_payment", &out, func(ctx context.Context, tx *sql.Tx) error {
		b, err := s.repos.Bookings.GetForUpdate(ctx, tx, in.BookingID)
		if err != nil {
			return translate(err, ErrBookingNotFound, "lock booking")
		}
		if b.UserID != in.UserID {
			return ErrBookingNotFound
		}
		if b.Status != model.BookingPending {
			return ErrInvalidStatus
		}
		if !in.Amount.Equal(b.FinalAmount) {
			return ErrInvalidAmount
		}
		paid, err := s.repos.Payments.ExistsForBooking(ctx, tx, b.ID)
		if err != nil {
			return fmt.Errorf("check payment: %w", err)
		}
		if paid {
			return ErrAlreadyPaid
		}

		ref := strings.TrimSpace(in.GatewayRef)
		if in.Method == model.MethodWallet {
			ref = "WALLET-" + uuid.NewString()
			if _, err := s.wallet.ApplyLedgerEntry(ctx, tx, Entry{
				UserID:      in.UserID,
				Type:        model.Debit,
				Amount:      in.Amount,
				Description: fmt.Sprintf("Payment for booking #%d", b.ID),
				RefType:     "booking",
				RefID:       strconv.FormatUint(b.ID, 10),
			}); err != nil {
				return err
			}
		}

		p = model.Payment{
			BookingID:       b.ID,
			UserID:          in.UserID,
			Method:          in.Method,
			GatewayRef:      ref,
			GatewayResponse: in.GatewayResponse,
			Amount:          in.Amount,
			Status:          model.PaymentCompleted,
			RefundAmount:    decimal.Zero,
			RefundStatus:    model.RefundNone,
		}
		if err := s.repos.Payments.InsertTx(ctx, tx, &p); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyPaid
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := s.repos.Bookings.UpdateStatus(ctx, tx, b.ID, model.BookingActive); err != nil {
			return fmt.Errorf("activate booking: %w", err)
		}
		if _, err := s.repos.Seats.SyncStatus(ctx, tx, b.SeatID, s.today()); err != nil {
			return err
		}

		out.User(notify.Notification{
			Target:   notify.Direct(in.UserID),
			Title:    "Payment successful",
			Message:  fmt.Sprintf("Your payment of %s for booking #%d was received. Your booking is now active.", money(p.Amount), b.ID),
			Category: "payment",
		})
		out.Admin(notify.AdminNotification{
			Title:     "Payment received",
			Message:   fmt.Sprintf("User %d paid %s by %s for booking #%d.", in.UserID, money(p.Amount), p.Method, b.ID),
			Category:  "payment",
			RelatedID: strconv.FormatUint(p.ID, 10),
		})
		return nil
	})
	return p, err
}
