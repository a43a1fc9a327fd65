package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// BookingRepo provides access to the bookings table.  Dates are stored as
// DATE columns and read back as UTC midnight.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, plan_id, seat_id, start_date, end_date,
	total_amount, discount_amount, final_amount, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.PlanID, &b.SeatID, &b.StartDate, &b.EndDate,
		&b.TotalAmount, &b.DiscountAmount, &b.FinalAmount, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CountOverlapping counts live bookings on the seat whose date range
// intersects [start, end].  The caller must hold the seat row lock.  It is
// a locking read so it sees bookings committed after the transaction's
// snapshot was taken.
func (r *BookingRepo) CountOverlapping(ctx context.Context, tx DBTX, seatID uint64, start, end time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	           WHERE seat_id = ? AND status IN ('pending','active')
	             AND start_date <= ? AND end_date >= ?
	           FOR UPDATE`
	var n int
	err := tx.QueryRowContext(ctx, q, seatID, end, start).Scan(&n)
	return n, err
}

// InsertTx stores a new booking and fills in its generated ID.
func (r *BookingRepo) InsertTx(ctx context.Context, tx DBTX, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, plan_id, seat_id, start_date, end_date,
	           total_amount, discount_amount, final_amount, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.PlanID, b.SeatID, b.StartDate, b.EndDate,
		b.TotalAmount, b.DiscountAmount, b.FinalAmount, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// Get loads a booking without locking it.
func (r *BookingRepo) Get(ctx context.Context, q DBTX, id uint64) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	return b, notFound(err)
}

// GetForUpdate loads a booking and locks its row for the transaction.
func (r *BookingRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	return b, notFound(err)
}

// UpdateStatus sets the status of a booking.
func (r *BookingRepo) UpdateStatus(ctx context.Context, tx DBTX, id uint64, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
	return err
}

// ExpireTx moves one booking from active to expired.  It reports false when
// the booking was no longer active, which makes the transition safe to repeat.
func (r *BookingRepo) ExpireTx(ctx context.Context, tx DBTX, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = 'expired' WHERE id = ? AND status = 'active'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BookingNotice is a booking joined with the names a reminder needs.
type BookingNotice struct {
	model.Booking
	UserName   string
	SeatNumber string
}

const noticeQuery = `SELECT b.id, b.user_id, b.plan_id, b.seat_id, b.start_date, b.end_date,
	b.total_amount, b.discount_amount, b.final_amount, b.status, b.created_at, b.updated_at,
	u.name, s.seat_number
	FROM bookings b
	JOIN users u ON u.id = b.user_id
	JOIN seats s ON s.id = b.seat_id `

func (r *BookingRepo) listNotices(ctx context.Context, where string, args ...any) ([]BookingNotice, error) {
	rows, err := r.db.QueryContext(ctx, noticeQuery+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingNotice
	for rows.Next() {
		var n BookingNotice
		b := &n.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.PlanID, &b.SeatID, &b.StartDate, &b.EndDate,
			&b.TotalAmount, &b.DiscountAmount, &b.FinalAmount, &b.Status, &b.CreatedAt, &b.UpdatedAt,
			&n.UserName, &n.SeatNumber); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ActiveEndingBetween lists active bookings whose end date falls in [from, to].
func (r *BookingRepo) ActiveEndingBetween(ctx context.Context, from, to time.Time) ([]BookingNotice, error) {
	return r.listNotices(ctx, `WHERE b.status = 'active' AND b.end_date BETWEEN ? AND ? ORDER BY b.end_date, b.id`, from, to)
}

// ActiveEndedOn lists active bookings whose end date is exactly day.
func (r *BookingRepo) ActiveEndedOn(ctx context.Context, day time.Time) ([]BookingNotice, error) {
	return r.listNotices(ctx, `WHERE b.status = 'active' AND b.end_date = ? ORDER BY b.id`, day)
}
