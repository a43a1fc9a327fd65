package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/metrics"
	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/notify"
	"github.com/iliyamo/seat-ledger/internal/repository"
)

// WalletService owns the wallet ledger.  ApplyLedgerEntry is the only code
// path that changes users.wallet_balance.
type WalletService struct {
	*core
}

// Entry describes one wallet mutation.
type Entry struct {
	UserID      uint64
	Type        model.EntryType
	Amount      decimal.Decimal
	Description string
	RefType     string
	RefID       string
}

// NextBalance computes the balance after applying an entry.  A debit that
// would go below zero fails with ErrInsufficientBalance.
func NextBalance(before decimal.Decimal, t model.EntryType, amount decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case model.Credit:
		return before.Add(amount), nil
	case model.Debit:
		after := before.Sub(amount)
		if after.IsNegative() {
			return before, ErrInsufficientBalance
		}
		return after, nil
	}
	return before, ErrInvalidInput
}

// ApplyLedgerEntry locks the user's wallet, appends a ledger row with the
// before/after pair and stores the new cached balance.  It must run inside
// the caller's transaction.
func (w *WalletService) ApplyLedgerEntry(ctx context.Context, tx repository.DBTX, e Entry) (model.WalletTransaction, error) {
	if e.UserID == 0 {
		return model.WalletTransaction{}, ErrUserNotFound
	}
	if !e.Amount.IsPositive() || !validMoney(e.Amount) {
		return model.WalletTransaction{}, ErrInvalidAmount
	}
	before, err := w.repos.Wallet.LockBalance(ctx, tx, e.UserID)
	if err != nil {
		return model.WalletTransaction{}, translate(err, ErrUserNotFound, "lock wallet")
	}
	after, err := NextBalance(before, e.Type, e.Amount)
	if err != nil {
		return model.WalletTransaction{}, err
	}
	entry := model.WalletTransaction{
		UserID:        e.UserID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   e.Description,
		ReferenceType: e.RefType,
		ReferenceID:   e.RefID,
	}
	if err := w.repos.Wallet.InsertEntry(ctx, tx, &entry); err != nil {
		return model.WalletTransaction{}, fmt.Errorf("insert wallet entry: %w", err)
	}
	if err := w.repos.Wallet.SetBalance(ctx, tx, e.UserID, after); err != nil {
		return model.WalletTransaction{}, fmt.Errorf("update wallet balance: %w", err)
	}
	metrics.TrackWalletEntry(string(e.Type))
	return entry, nil
}

func (w *WalletService) apply(ctx context.Context, op string, e Entry, out *notify.Outbox) (model.WalletTransaction, error) {
	var entry model.WalletTransaction
	err := w.inTx(ctx, op, out, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		entry, err = w.ApplyLedgerEntry(ctx, tx, e)
		return err
	})
	return entry, err
}

// Credit adds money to a wallet in its own transaction.
func (w *WalletService) Credit(ctx context.Context, e Entry) (model.WalletTransaction, error) {
	e.Type = model.Credit
	return w.apply(ctx, "wallet_credit", e, nil)
}

// Debit takes money from a wallet in its own transaction.
func (w *WalletService) Debit(ctx context.Context, e Entry) (model.WalletTransaction, error) {
	e.Type = model.Debit
	return w.apply(ctx, "wallet_debit", e, nil)
}

// Recharge credits a wallet after an external top-up.  An empty gateway
// reference gets a generated one.
func (w *WalletService) Recharge(ctx context.Context, userID uint64, amount decimal.Decimal, gatewayRef string) (model.WalletTransaction, error) {
	if !amount.IsPositive() || !validMoney(amount) {
		return model.WalletTransaction{}, ErrInvalidAmount
	}
	if gatewayRef == "" {
		gatewayRef = "RCH-" + uuid.NewString()
	}
	var out notify.Outbox
	out.User(notify.Notification{
		Target:   notify.Direct(userID),
		Title:    "Wallet recharged",
		Message:  fmt.Sprintf("%s was added to your wallet.", money(amount)),
		Category: "wallet",
	})
	return w.apply(ctx, "wallet_recharge", Entry{
		UserID:      userID,
		Type:        model.Credit,
		Amount:      amount,
		Description: "Wallet recharge",
		RefType:     "recharge",
		RefID:       gatewayRef,
	}, &out)
}

// Balance returns the cached balance.
func (w *WalletService) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	bal, err := w.repos.Wallet.Balance(ctx, userID)
	return bal, translate(err, ErrUserNotFound, "read balance")
}

// History returns one page of the ledger, newest first.
func (w *WalletService) History(ctx context.Context, userID uint64, page, limit int) ([]model.WalletTransaction, error) {
	lim, off := Paging(page, limit)
	rows, err := w.repos.Wallet.History(ctx, userID, lim, off)
	if err != nil {
		return nil, fmt.Errorf("wallet history: %w", err)
	}
	return rows, nil
}

// VerifyLedger walks a user's ledger from the first entry and checks that
// each row continues the previous one and that the newest balance_after
// equals the cached balance.  The user row is locked first so the balance
// and the rows are read from the same state.
func (w *WalletService) VerifyLedger(ctx context.Context, userID uint64) error {
	return w.inTx(ctx, "verify_ledger", nil, func(ctx context.Context, tx *sql.Tx) error {
		bal, err := w.repos.Wallet.LockBalance(ctx, tx, userID)
		if err != nil {
			return translate(err, ErrUserNotFound, "lock wallet")
		}
		chain, err := w.repos.Wallet.Chain(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("wallet chain: %w", err)
		}
		return CheckChain(chain, bal)
	})
}

// CheckChain verifies ledger rows (oldest first) against a cached balance.
func CheckChain(chain []model.WalletTransaction, cached decimal.Decimal) error {
	prev := decimal.Zero
	for i, t := range chain {
		if i == 0 {
			prev = t.BalanceBefore
		}
		if !t.Follows(prev) {
			return fmt.Errorf("%w: entry %d breaks the chain", ErrLedgerMismatch, t.ID)
		}
		prev = t.BalanceAfter
	}
	if !prev.Equal(cached) {
		return fmt.Errorf("%w: ledger ends at %s, cached %s", ErrLedgerMismatch, money(prev), money(cached))
	}
	return nil
}
