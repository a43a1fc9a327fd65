// Package service implements the booking, payment, wallet and refund
// ledger.  Every mutating operation runs in one bounded database
// transaction, locks the seat or wallet rows it depends on, and hands its
// notifications to the dispatcher only after the commit succeeded.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/database"
	"github.com/iliyamo/seat-ledger/internal/metrics"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// Options tune a Ledger.  Zero values fall back to sensible defaults.
type Options struct {
	TxTimeout time.Duration
	Location  *time.Location
	Now       func() time.Time
	Log       *slog.Logger
}

// Repos bundles the repositories the ledger works with.
type Repos struct {
	Seats    *repository.SeatRepo
	Plans    *repository.PlanRepo
	Bookings *repository.BookingRepo
	Advance  *repository.AdvanceBookingRepo
	Payments *repository.PaymentRepo
	Wallet   *repository.WalletRepo
	Refunds  *repository.RefundRepo
	Requests *repository.RefundRequestRepo
	Users    *repository.UserRepo
}

func NewRepos(db *sql.DB) Repos {
	return Repos{
		Seats:    repository.NewSeatRepo(db),
		Plans:    repository.NewPlanRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Advance:  repository.NewAdvanceBookingRepo(db),
		Payments: repository.NewPaymentRepo(db),
		Wallet:   repository.NewWalletRepo(db),
		Refunds:  repository.NewRefundRepo(db),
		Requests: repository.NewRefundRequestRepo(db),
		Users:    repository.NewUserRepo(db),
	}
}

type core struct {
	db      *sql.DB
	repos   Repos
	notify  *notify.Dispatcher
	log     *slog.Logger
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
}

// Ledger groups the ledger services over one shared core.
type Ledger struct {
	Wallet   *WalletService
	Bookings *BookingService
	Advance  *AdvanceService
	Payments *PaymentService
	Refunds  *RefundService
	Plans    *PlanService
}

func NewLedger(db *sql.DB, d *notify.Dispatcher, opts Options) *Ledger {
	c := &core{
		db:      db,
		repos:   NewRepos(db),
		notify:  d,
		log:     opts.Log,
		timeout: opts.TxTimeout,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	w := &WalletService{core: c}
	b := &BookingService{core: c}
	return &Ledger{
		Wallet:   w,
		Bookings: b,
		Advance:  &AdvanceService{core: c, bookings: b},
		Payments: &PaymentService{core: c, wallet: w},
		Refunds:  &RefundService{core: c, wallet: w},
		Plans:    &PlanService{core: c},
	}
}

// today is the current calendar day in the ledger's time zone, expressed
// as UTC midnight so it compares directly with DATE columns.
func (c *core) today() time.Time {
	return dateOf(c.now().In(c.loc))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

// inTx runs fn in a ledger transaction and flushes out once it committed.
func (c *core) inTx(ctx context.Context, op string, out *notify.Outbox, fn func(ctx context.Context, tx *sql.Tx) error) error {
	start := time.Now()
	err := database.WithTx(ctx, c.db, c.timeout, fn)
	metrics.ObserveTx(op, time.Since(start))
	if err != nil {
		kind := KindOf(err)
		metrics.TrackOperation(op, kind.String())
		if kind == KindSystem || kind == KindIntegrity {
			c.log.Error("ledger transaction failed", "op", op, "error", err)
		}
		return err
	}
	metrics.TrackOperation(op, "ok")
	if out != nil && out.Len() > 0 {
		c.notify.Flush(context.WithoutCancel(ctx), out)
	}
	return nil
}

// translate maps repository.ErrNotFound to the given ledger error and
// wraps anything else with the step that failed.
func translate(err error, notFound error, step string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", step, err)
}

// validMoney reports whether d is non-negative with at most two decimals.
func validMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// owns reports whether the actor may act on a record owned by userID.
func (a Actor) owns(userID uint64) bool {
	return a.Admin || a.UserID == userID
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func day(t time.Time) string { return t.Format(time.DateOnly) }

// Paging clamps page/limit query values.
func Paging(page, limit int) (lim, offset int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
