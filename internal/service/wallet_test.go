package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-ledger/internal/model"
)

func TestNextBalance(t *testing.T) {
	after, err := NextBalance(dec("100"), model.Credit, dec("25.50"))
	require.NoError(t, err)
	assert.True(t, after.Equal(dec("125.50")))

	after, err = NextBalance(dec("100"), model.Debit, dec("100"))
	require.NoError(t, err)
	assert.True(t, after.IsZero())

	_, err = NextBalance(dec("10"), model.Debit, dec("10.01"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = NextBalance(dec("10"), model.EntryType("bonus"), dec("1"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckChain(t *testing.T) {
	chain := []model.WalletTransaction{
		{ID: 1, Type: model.Credit, Amount: dec("100"), BalanceBefore: dec("0"), BalanceAfter: dec("100")},
		{ID: 2, Type: model.Debit, Amount: dec("40"), BalanceBefore: dec("100"), BalanceAfter: dec("60")},
	}
	assert.NoError(t, CheckChain(chain, dec("60")))
	assert.NoError(t, CheckChain(nil, decimal.Zero))

	err := CheckChain(chain, dec("70"))
	assert.ErrorIs(t, err, ErrLedgerMismatch)

	chain[1].BalanceBefore = dec("90")
	err = CheckChain(chain, dec("60"))
	assert.ErrorIs(t, err, ErrLedgerMismatch)
	assert.Contains(t, err.Error(), "entry 2")
}

func TestDebitInsufficientBalanceRollsBack(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("10.00"))
	mock.ExpectRollback()

	_, err := l.Wallet.Debit(context.Background(), Entry{UserID: 7, Amount: dec("50"), Description: "test"})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyLedgerEntryRejectsBadInput(t *testing.T) {
	l, mock, _, db := newTestLedger(t)

	_, err := l.Wallet.ApplyLedgerEntry(context.Background(), db, Entry{UserID: 0, Type: model.Credit, Amount: dec("1")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = l.Wallet.ApplyLedgerEntry(context.Background(), db, Entry{UserID: 1, Type: model.Credit, Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Wallet.ApplyLedgerEntry(context.Background(), db, Entry{UserID: 1, Type: model.Credit, Amount: dec("1.001")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRechargeWritesLedgerAndNotifies(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("100.00"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WithArgs(3, "credit", "50", "100", "150", "Wallet recharge", "recharge", "GW-1").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET wallet_balance = ? WHERE id = ?")).
		WithArgs("150", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := l.Wallet.Recharge(context.Background(), 3, dec("50"), "GW-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), entry.ID)
	assert.True(t, entry.BalanceBefore.Equal(dec("100")))
	assert.True(t, entry.BalanceAfter.Equal(dec("150")))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, rec.users, 1)
	assert.Equal(t, "wallet", rec.users[0].Category)
	id, direct := rec.users[0].Target.UserID()
	assert.True(t, direct)
	assert.Equal(t, uint64(3), id)
}

func TestRechargeNotifiesNothingOnFailure(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := l.Wallet.Recharge(context.Background(), 3, dec("50"), "")
	require.Error(t, err)
	assert.Equal(t, KindSystem, KindOf(err))
	assert.Empty(t, rec.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRechargeRejectsNonPositiveAmount(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)
	_, err := l.Wallet.Recharge(context.Background(), 3, dec("-5"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var walletCols = []string{"id", "user_id", "type", "amount", "balance_before", "balance_after",
	"description", "reference_type", "reference_id", "created_at"}

func TestVerifyLedgerReadsUnderBalanceLock(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("400.00"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_transactions WHERE user_id = ? ORDER BY id")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow(1, 7, "credit", "1000.00", "0.00", "1000.00", "Wallet recharge", "recharge", "GW-1", fixedNow).
			AddRow(2, 7, "debit", "600.00", "1000.00", "400.00", "Payment for booking #9", "booking", "9", fixedNow))
	mock.ExpectCommit()

	require.NoError(t, l.Wallet.VerifyLedger(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyLedgerMismatchIsIntegrityError(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("900.00"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM wallet_transactions WHERE user_id = ? ORDER BY id")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(walletCols).
			AddRow(1, 7, "credit", "1000.00", "0.00", "1000.00", "Wallet recharge", "recharge", "GW-1", fixedNow))
	mock.ExpectRollback()

	err := l.Wallet.VerifyLedger(context.Background(), 7)
	assert.ErrorIs(t, err, ErrLedgerMismatch)
	assert.Equal(t, KindIntegrity, KindOf(err))
	assert.Contains(t, err.Error(), "ledger ends at 1000.00, cached 900.00")
	assert.NoError(t, mock.ExpectationsWereMet())
}
