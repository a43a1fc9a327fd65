package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// AdvanceBookingRepo provides access to advance_bookings.
type AdvanceBookingRepo struct {
	db *sql.DB
}

func NewAdvanceBookingRepo(db *sql.DB) *AdvanceBookingRepo { return &AdvanceBookingRepo{db: db} }

const advanceColumns = `id, user_id, plan_id, seat_id, start_date, amount, status, booking_id, created_at`

func scanAdvance(row interface{ Scan(...any) error }) (model.AdvanceBooking, error) {
	var a model.AdvanceBooking
	var bookingID sql.NullInt64
	err := row.Scan(&a.ID, &a.UserID, &a.PlanID, &a.SeatID, &a.StartDate, &a.Amount, &a.Status, &bookingID, &a.CreatedAt)
	a.BookingID = nullID(bookingID)
	return a, err
}

// InsertTx stores a scheduled advance booking.
func (r *AdvanceBookingRepo) InsertTx(ctx context.Context, tx DBTX, a *model.AdvanceBooking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO advance_bookings (user_id, plan_id, seat_id, start_date, amount, status) VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.PlanID, a.SeatID, a.StartDate, a.Amount, a.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// GetForUpdate loads an advance booking and locks its row.
func (r *AdvanceBookingRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.AdvanceBooking, error) {
	a, err := scanAdvance(tx.QueryRowContext(ctx, `SELECT `+advanceColumns+` FROM advance_bookings WHERE id = ? FOR UPDATE`, id))
	return a, notFound(err)
}

// SetStatus updates the status and, once converted, the booking reference.
func (r *AdvanceBookingRepo) SetStatus(ctx context.Context, tx DBTX, id uint64, status model.AdvanceStatus, bookingID *uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE advance_bookings SET status = ?, booking_id = ? WHERE id = ?`,
		status, nullable(bookingID), id)
	return err
}

// AdvanceNotice is a scheduled advance booking with the user's name.
type AdvanceNotice struct {
	model.AdvanceBooking
	UserName string
}

// ScheduledStartingOn lists scheduled advance bookings starting on any of days.
func (r *AdvanceBookingRepo) ScheduledStartingOn(ctx context.Context, days []time.Time) ([]AdvanceNotice, error) {
	if len(days) == 0 {
		return nil, nil
	}
	q := `SELECT a.id, a.user_id, a.plan_id, a.seat_id, a.start_date, a.amount, a.status, a.booking_id, a.created_at, u.name
	      FROM advance_bookings a JOIN users u ON u.id = a.user_id
	      WHERE a.status = 'scheduled' AND a.start_date IN (?`
	args := []any{days[0]}
	for _, d := range days[1:] {
		q += `, ?`
		args = append(args, d)
	}
	q += `) ORDER BY a.start_date, a.id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AdvanceNotice
	for rows.Next() {
		var n AdvanceNotice
		var bookingID sql.NullInt64
		a := &n.AdvanceBooking
		if err := rows.Scan(&a.ID, &a.UserID, &a.PlanID, &a.SeatID, &a.StartDate, &a.Amount, &a.Status,
			&bookingID, &a.CreatedAt, &n.UserName); err != nil {
			return nil, err
		}
		a.BookingID = nullID(bookingID)
		out = append(out, n)
	}
	return out, rows.Err()
}
