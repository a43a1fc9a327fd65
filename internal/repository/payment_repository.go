package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// PaymentRepo provides access to payments.  booking_id is unique, so a
// second insert for the same booking returns ErrConflict.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, user_id, method, gateway_ref, COALESCE(gateway_response, ''),
	amount, status, refund_amount, refund_status, created_at`

func scanPayment(row interface{ Scan(...any) error }) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Method, &p.GatewayRef, &p.GatewayResponse,
		&p.Amount, &p.Status, &p.RefundAmount, &p.RefundStatus, &p.CreatedAt)
	return p, err
}

// InsertTx stores a completed payment.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx DBTX, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, user_id, method, gateway_ref, gateway_response, amount, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.BookingID, p.UserID, p.Method, p.GatewayRef, p.GatewayResponse, p.Amount, p.Status)
	if err != nil {
		return dup(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetForUpdate loads a payment and locks its row.
func (r *PaymentRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ? FOR UPDATE`, id))
	return p, notFound(err)
}

// GetByBookingForUpdate loads the payment settling a booking and locks it.
func (r *PaymentRepo) GetByBookingForUpdate(ctx context.Context, tx DBTX, bookingID uint64) (model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? FOR UPDATE`, bookingID))
	return p, notFound(err)
}

// ExistsForBooking reports whether a booking already has a payment.
func (r *PaymentRepo) ExistsForBooking(ctx context.Context, tx DBTX, bookingID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE booking_id = ?`, bookingID).Scan(&n)
	return n > 0, err
}

// SetRefundTotals stores the cumulative refund figures for a payment.
func (r *PaymentRepo) SetRefundTotals(ctx context.Context, tx DBTX, id uint64, refunded decimal.Decimal, state model.RefundState, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE payments SET refund_amount = ?, refund_status = ?, status = ? WHERE id = ?`,
		refunded, state, status, id)
	return err
}
