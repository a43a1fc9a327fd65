package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// RefundRequestRepo provides access to refund_requests.  The table allows
// at most one pending or under_review row per booking; inserting a second
// one returns ErrConflict.
type RefundRequestRepo struct {
	db *sql.DB
}

func NewRefundRequestRepo(db *sql.DB) *RefundRequestRepo { return &RefundRequestRepo{db: db} }

// HasOpen reports whether the booking already has a pending or
// under_review request.
func (r *RefundRequestRepo) HasOpen(ctx context.Context, tx DBTX, bookingID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refund_requests WHERE booking_id = ? AND status IN ('pending','under_review')`,
		bookingID).Scan(&n)
	return n > 0, err
}

// InsertTx stores a new request and fills in its ID.
func (r *RefundRequestRepo) InsertTx(ctx context.Context, tx DBTX, q *model.RefundRequest) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO refund_requests (user_id, booking_id, payment_id, request_type, reason, expected_amount, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.UserID, q.BookingID, nullable(q.PaymentID), q.Type, q.Reason, q.ExpectedAmount, q.Status)
	if err != nil {
		return dup(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	return nil
}

// GetForUpdate loads a request and locks its row.
func (r *RefundRequestRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.RefundRequest, error) {
	var q model.RefundRequest
	var paymentID, reviewerID, refundID sql.NullInt64
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, booking_id, payment_id, request_type, reason, expected_amount, status,
		        reviewer_id, admin_notes, refund_id, created_at
		 FROM refund_requests WHERE id = ? FOR UPDATE`, id).
		Scan(&q.ID, &q.UserID, &q.BookingID, &paymentID, &q.Type, &q.Reason, &q.ExpectedAmount, &q.Status,
			&reviewerID, &q.AdminNotes, &refundID, &q.CreatedAt)
	if err != nil {
		return q, notFound(err)
	}
	q.PaymentID = nullID(paymentID)
	q.ReviewerID = nullID(reviewerID)
	q.RefundID = nullID(refundID)
	return q, nil
}

// RequestReview is the typed set of fields a review writes.
type RequestReview struct {
	Status     model.RequestStatus
	ReviewerID uint64
	Notes      string
	RefundID   *uint64
}

// Review stores the outcome of an admin review.
func (r *RefundRequestRepo) Review(ctx context.Context, tx DBTX, id uint64, rv RequestReview) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE refund_requests SET status = ?, reviewer_id = ?, admin_notes = ?, refund_id = ? WHERE id = ?`,
		rv.Status, rv.ReviewerID, rv.Notes, nullable(rv.RefundID), id)
	return err
}

// Delete removes a request row.
func (r *RefundRequestRepo) Delete(ctx context.Context, tx DBTX, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM refund_requests WHERE id = ?`, id)
	return err
}
