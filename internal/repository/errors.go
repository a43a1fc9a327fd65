// Package repository holds the SQL data access for the ledger.  Every
// method that participates in a ledger transaction accepts a DBTX so the
// caller decides whether it runs inside a *sql.Tx or directly on the pool.
//
// Sentinel errors defined here let the service layer classify failures
// without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup yields no rows.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert violates a unique key, such as a
// second payment for one booking or a second open refund request.
var ErrConflict = errors.New("conflict")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IsDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// dup maps duplicate-key errors to ErrConflict.
func dup(err error) error {
	if IsDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func nullable(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
