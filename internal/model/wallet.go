package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	Credit EntryType = "credit"
	Debit  EntryType = "debit"
)

// WalletTransaction is one row of a user's append-only ledger.  The pair
// BalanceBefore/BalanceAfter is the audit trail; users.wallet_balance is a
// cached copy of the newest BalanceAfter.
type WalletTransaction struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Description   string          `json:"description"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Follows reports whether t is a valid successor of prev in the ledger.
func (t WalletTransaction) Follows(prev decimal.Decimal) bool {
	if !t.BalanceBefore.Equal(prev) {
		return false
	}
	want := t.BalanceBefore.Add(t.Amount)
	if t.Type == Debit {
		want = t.BalanceBefore.Sub(t.Amount)
	}
	return t.BalanceAfter.Equal(want)
}
