package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-ledger/internal/model"
)

func expectBookingLock(mock sqlmock.Sqlmock, userID uint64, status model.BookingStatus) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ? FOR UPDATE")).
		WithArgs(9).
		WillReturnRows(bookingRow(userID, status))
}

func TestSettlePaymentValidation(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Payments.SettlePayment(ctx, SettleInput{UserID: 7, BookingID: 9, Amount: dec("0"), Method: model.MethodWallet})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Payments.SettlePayment(ctx, SettleInput{UserID: 7, BookingID: 9, Amount: dec("1500"), Method: "cash"})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = l.Payments.SettlePayment(ctx, SettleInput{UserID: 7, BookingID: 9, Amount: dec("1500"), Method: model.MethodGateway})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "gateway_ref")

	_, err = l.Payments.SettlePayment(ctx, SettleInput{Amount: dec("1500"), Method: model.MethodWallet})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePaymentForeignBookingIsNotFound(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectBookingLock(mock, 8, model.BookingPending)
	mock.ExpectRollback()

	_, err := l.Payments.SettlePayment(context.Background(), SettleInput{
		UserID: 7, BookingID: 9, Amount: dec("1500"), Method: model.MethodWallet,
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.Empty(t, rec.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePaymentAmountMustMatch(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectBookingLock(mock, 7, model.BookingPending)
	mock.ExpectRollback()

	_, err := l.Payments.SettlePayment(context.Background(), SettleInput{
		UserID: 7, BookingID: 9, Amount: dec("1000"), Method: model.MethodWallet,
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePaymentRejectsActiveBooking(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectBookingLock(mock, 7, model.BookingActive)
	mock.ExpectRollback()

	_, err := l.Payments.SettlePayment(context.Background(), SettleInput{
		UserID: 7, BookingID: 9, Amount: dec("1500"), Method: model.MethodWallet,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePaymentInsufficientWallet(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectBookingLock(mock, 7, model.BookingPending)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments WHERE booking_id = ?")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("200.00"))
	mock.ExpectRollback()

	_, err := l.Payments.SettlePayment(context.Background(), SettleInput{
		UserID: 7, BookingID: 9, Amount: dec("1500"), Method: model.MethodWallet,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, rec.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettlePaymentByWalletActivatesBooking(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectBookingLock(mock, 7, model.BookingPending)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM payments WHERE booking_id = ?")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT wallet_balance FROM users WHERE id = ? FOR UPDATE")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"wallet_balance"}).AddRow("2000.00"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO wallet_transactions")).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET wallet_balance = ? WHERE id = ?")).
		WithArgs("500", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ?")).
		WithArgs("active", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(syncQuery).
		WithArgs(5, date(2025, 3, 1)).
		WillReturnRows(sqlmock.NewRows([]string{"active", "pending"}).AddRow(1, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats SET status = ? WHERE id = ?")).
		WithArgs("occupied", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := l.Payments.SettlePayment(context.Background(), SettleInput{
		UserID: 7, BookingID: 9, Amount: dec("1500"), Method: model.MethodWallet,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(77), p.ID)
	assert.Equal(t, model.PaymentCompleted, p.Status)
	assert.True(t, regexp.MustCompile(`^WALLET-`).MatchString(p.GatewayRef))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, rec.users, 1)
	assert.Equal(t, "payment", rec.users[0].Category)
	require.Len(t, rec.admins, 1)
	assert.Equal(t, "77", rec.admins[0].RelatedID)
}
