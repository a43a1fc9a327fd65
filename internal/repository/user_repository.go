package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-ledger/internal/model"
)

// UserRepo reads the users table.  Users are created by the auth service;
// the ledger only reads them (and their balance through WalletRepo).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, name, email, role, date_of_birth, is_blocked, wallet_balance`

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	var dob sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &dob, &u.IsBlocked, &u.WalletBalance)
	if dob.Valid {
		d := dob.Time
		u.DateOfBirth = &d
	}
	return u, err
}

// BirthdaysOn lists users who are not blocked and were born on the
// month and day of day.
func (r *UserRepo) BirthdaysOn(ctx context.Context, day time.Time) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE is_blocked = 0 AND date_of_birth IS NOT NULL
		   AND MONTH(date_of_birth) = ? AND DAY(date_of_birth) = ?
		 ORDER BY id`, int(day.Month()), day.Day())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
