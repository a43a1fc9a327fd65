package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// RefundRepo provides access to executed refunds.
type RefundRepo struct {
	db *sql.DB
}

func NewRefundRepo(db *sql.DB) *RefundRepo { return &RefundRepo{db: db} }

// InsertTx stores a refund and fills in its ID.
func (r *RefundRepo) InsertTx(ctx context.Context, tx DBTX, f *model.Refund) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO refunds (payment_id, booking_id, user_id, amount, method, type, reason, status, processed_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.PaymentID, f.BookingID, f.UserID, f.Amount, f.Method, f.Type, f.Reason, f.Status, nullable(f.ProcessedBy))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// GetForUpdate loads a refund and locks its row.
func (r *RefundRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.Refund, error) {
	var f model.Refund
	var by sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT id, payment_id, booking_id, user_id, amount, method, type, reason, status, processed_by, created_at
		 FROM refunds WHERE id = ? FOR UPDATE`, id).
		Scan(&f.ID, &f.PaymentID, &f.BookingID, &f.UserID, &f.Amount, &f.Method, &f.Type, &f.Reason, &f.Status, &by, &f.CreatedAt)
	f.ProcessedBy = nullID(by)
	return f, notFound(err)
}

// SetStatus updates a refund's status.
func (r *RefundRepo) SetStatus(ctx context.Context, tx DBTX, id uint64, status model.RefundStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE refunds SET status = ? WHERE id = ?`, status, id)
	return err
}
