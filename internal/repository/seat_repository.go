package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// SeatRepo provides access to the seats table.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, seat_number, section, status, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (model.Seat, error) {
	var s model.Seat
	err := row.Scan(&s.ID, &s.SeatNumber, &s.Section, &s.Status, &s.UpdatedAt)
	return s, err
}

// Get loads a seat without locking it.
func (r *SeatRepo) Get(ctx context.Context, q DBTX, id uint64) (model.Seat, error) {
	s, err := scanSeat(q.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, id))
	return s, notFound(err)
}

// GetForUpdate loads a seat and takes an exclusive row lock on it.  Every
// booking attempt for the seat serialises on this lock until the
// surrounding transaction ends.
func (r *SeatRepo) GetForUpdate(ctx context.Context, tx DBTX, id uint64) (model.Seat, error) {
	s, err := scanSeat(tx.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ? FOR UPDATE`, id))
	return s, notFound(err)
}

// List returns all seats ordered by seat number.
func (r *SeatRepo) List(ctx context.Context) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+seatColumns+` FROM seats ORDER BY seat_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SyncStatus recomputes the seat's status from its live bookings that have
// not yet ended and stores it.  It is the only writer of seats.status.  The
// count is a locking read so it reflects the latest committed bookings.
func (r *SeatRepo) SyncStatus(ctx context.Context, tx DBTX, seatID uint64, today time.Time) (model.SeatStatus, error) {
	const q = `SELECT COALESCE(SUM(status = 'active'), 0), COALESCE(SUM(status = 'pending'), 0)
	           FROM bookings
	           WHERE seat_id = ? AND status IN ('pending','active') AND end_date >= ?
	           FOR UPDATE`
	var active, pending int
	if err := tx.QueryRowContext(ctx, q, seatID, today).Scan(&active, &pending); err != nil {
		return "", fmt.Errorf("count live bookings: %w", err)
	}
	status := model.DeriveSeatStatus(active, pending)
	if _, err := tx.ExecContext(ctx, `UPDATE seats SET status = ? WHERE id = ?`, status, seatID); err != nil {
		return "", fmt.Errorf("update seat status: %w", err)
	}
	return status, nil
}
