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

var advanceCols = []string{"id", "user_id", "plan_id", "seat_id", "start_date", "amount", "status", "booking_id", "created_at"}

func expectAdvanceLock(mock sqlmock.Sqlmock, userID uint64, status model.AdvanceStatus) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM advance_bookings WHERE id = ? FOR UPDATE")).
		WithArgs(12).
		WillReturnRows(sqlmock.NewRows(advanceCols).
			AddRow(12, userID, 1, 5, date(2025, 3, 10), "1500.00", string(status), nil, fixedNow))
}

func TestCreateAdvanceBookingSchedules(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectPlan(mock, true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM seats WHERE id = ?")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow(5, "S05", "Main", "occupied", fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO advance_bookings")).
		WithArgs(7, 1, 5, date(2025, 3, 10), "1500", "scheduled").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectCommit()

	a, err := l.Advance.CreateAdvanceBooking(context.Background(), AdvanceInput{
		UserID: 7, PlanID: 1, SeatID: 5, StartDate: date(2025, 3, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(12), a.ID)
	assert.Equal(t, model.AdvanceScheduled, a.Status)
	assert.True(t, a.Amount.Equal(dec("1500")))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, rec.users, 1)
	require.Len(t, rec.admins, 1)
	assert.Equal(t, "12", rec.admins[0].RelatedID)
}

func TestCreateAdvanceBookingNeedsFutureDate(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	_, err := l.Advance.CreateAdvanceBooking(context.Background(), AdvanceInput{
		UserID: 7, PlanID: 1, SeatID: 5, StartDate: date(2025, 3, 1),
	})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = l.Advance.CreateAdvanceBooking(context.Background(), AdvanceInput{UserID: 7})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelAdvanceBooking(t *testing.T) {
	t.Run("other user", func(t *testing.T) {
		l, mock, _, _ := newTestLedger(t)
		mock.ExpectBegin()
		expectAdvanceLock(mock, 8, model.AdvanceScheduled)
		mock.ExpectRollback()

		_, err := l.Advance.CancelAdvanceBooking(context.Background(), 12, Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrAdvanceNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("converted", func(t *testing.T) {
		l, mock, _, _ := newTestLedger(t)
		mock.ExpectBegin()
		expectAdvanceLock(mock, 7, model.AdvanceConverted)
		mock.ExpectRollback()

		_, err := l.Advance.CancelAdvanceBooking(context.Background(), 12, Actor{UserID: 7})
		assert.ErrorIs(t, err, ErrInvalidStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner", func(t *testing.T) {
		l, mock, rec, _ := newTestLedger(t)
		mock.ExpectBegin()
		expectAdvanceLock(mock, 7, model.AdvanceScheduled)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE advance_bookings SET status = ?, booking_id = ? WHERE id = ?")).
			WithArgs("cancelled", nil, 12).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		a, err := l.Advance.CancelAdvanceBooking(context.Background(), 12, Actor{UserID: 7})
		require.NoError(t, err)
		assert.Equal(t, model.AdvanceCancelled, a.Status)
		assert.Len(t, rec.users, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConvertAdvanceBookingCreatesPendingBooking(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectAdvanceLock(mock, 7, model.AdvanceScheduled)
	expectSeatLock(mock)
	expectPlan(mock, true)
	mock.ExpectQuery(overlapQuery).
		WithArgs(5, date(2025, 4, 9), date(2025, 3, 10)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(syncQuery).
		WillReturnRows(sqlmock.NewRows([]string{"active", "pending"}).AddRow(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seats SET status = ? WHERE id = ?")).
		WithArgs("reserved", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE advance_bookings SET status = ?, booking_id = ? WHERE id = ?")).
		WithArgs("converted", sqlmock.AnyArg(), 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := l.Advance.ConvertAdvanceBooking(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), b.ID)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.True(t, b.FinalAmount.Equal(dec("1500")))
	assert.Len(t, rec.users, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvertAdvanceBookingOnlyWhenScheduled(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectAdvanceLock(mock, 7, model.AdvanceCancelled)
	mock.ExpectRollback()

	_, err := l.Advance.ConvertAdvanceBooking(context.Background(), 12)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
