package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// WalletRepo reads and writes the wallet ledger.  The cached balance on
// users and the wallet_transactions log must only change together; the
// service layer pairs LockBalance, InsertEntry and SetBalance in one
// transaction.
type WalletRepo struct {
	db *sql.DB
}

func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

// LockBalance reads a user's balance and locks the user row.
func (r *WalletRepo) LockBalance(ctx context.Context, tx DBTX, userID uint64) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := tx.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&bal)
	return bal, notFound(err)
}

// Balance reads a user's cached balance without locking.
func (r *WalletRepo) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT wallet_balance FROM users WHERE id = ?`, userID).Scan(&bal)
	return bal, notFound(err)
}

// InsertEntry appends one row to the ledger.
func (r *WalletRepo) InsertEntry(ctx context.Context, tx DBTX, t *model.WalletTransaction) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (user_id, type, amount, balance_before, balance_after, description, reference_type, reference_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter, t.Description, t.ReferenceType, t.ReferenceID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// SetBalance stores the cached balance.
func (r *WalletRepo) SetBalance(ctx context.Context, tx DBTX, userID uint64, bal decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET wallet_balance = ? WHERE id = ?`, bal, userID)
	return err
}

const walletColumns = `id, user_id, type, amount, balance_before, balance_after, description, reference_type, reference_id, created_at`

func (r *WalletRepo) list(ctx context.Context, db DBTX, q string, args ...any) ([]model.WalletTransaction, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WalletTransaction{}
	for rows.Next() {
		var t model.WalletTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
			&t.Description, &t.ReferenceType, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// History returns a page of a user's ledger, newest first.
func (r *WalletRepo) History(ctx context.Context, userID uint64, limit, offset int) ([]model.WalletTransaction, error) {
	return r.list(ctx, r.db, `SELECT `+walletColumns+` FROM wallet_transactions WHERE user_id = ? ORDER BY id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
}

// Chain returns a user's whole ledger, oldest first.  Run it inside the
// transaction that holds the user's balance lock.
func (r *WalletRepo) Chain(ctx context.Context, tx DBTX, userID uint64) ([]model.WalletTransaction, error) {
	return r.list(ctx, tx, `SELECT `+walletColumns+` FROM wallet_transactions WHERE user_id = ? ORDER BY id`, userID)
}
