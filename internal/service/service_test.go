package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-ledger/internal/notify"
)

// fixedNow is 2025-03-01 10:00 UTC.
var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	users  []notify.Notification
	admins []notify.AdminNotification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, n)
	return nil
}

func (r *recorder) NotifyAdmin(_ context.Context, n notify.AdminNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = append(r.admins, n)
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock, *recorder, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	l := NewLedger(db, notify.NewDispatcher(rec, rec, nil), Options{
		TxTimeout: time.Second,
		Now:       func() time.Time { return fixedNow },
	})
	return l, mock, rec, db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrInvalidAmount))
	assert.Equal(t, KindConflict, KindOf(ErrSeatUnavailable))
	assert.Equal(t, KindNotFound, KindOf(ErrBookingNotFound))
	assert.Equal(t, KindInsufficientFunds, KindOf(ErrInsufficientBalance))
	assert.Equal(t, KindSystem, KindOf(sql.ErrConnDone))
	assert.Equal(t, KindValidation, KindOf(&ValidationError{Fields: []FieldError{{Field: "x", Message: "y"}}}))
	assert.Equal(t, KindIntegrity, KindOf(ErrLedgerMismatch))
	assert.Equal(t, "insufficient_funds", KindInsufficientFunds.String())
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := error(&ValidationError{Fields: []FieldError{{Field: "seat_id", Message: "is required"}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "seat_id: is required")
}

func TestPaging(t *testing.T) {
	lim, off := Paging(0, 0)
	assert.Equal(t, 20, lim)
	assert.Equal(t, 0, off)

	lim, off = Paging(3, 10)
	assert.Equal(t, 10, lim)
	assert.Equal(t, 20, off)

	lim, _ = Paging(1, 500)
	assert.Equal(t, 20, lim)
}

func TestValidMoney(t *testing.T) {
	assert.True(t, validMoney(dec("0")))
	assert.True(t, validMoney(dec("12.50")))
	assert.False(t, validMoney(dec("12.505")))
	assert.False(t, validMoney(dec("-1")))
}

func TestTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	l := NewLedger(nil, nil, Options{
		Location: loc,
		Now:      func() time.Time { return time.Date(2025, 3, 1, 21, 0, 0, 0, time.UTC) },
	})
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), l.Bookings.today())
}
