package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/seat-ledger/internal/model"
)

func TestExpectedRefund(t *testing.T) {
	today := date(2025, 3, 1)
	cases := []struct {
		name  string
		typ   model.RequestType
		start int
		want  string
	}{
		{"ten days ahead", model.RequestCancellation, 11, "500"},
		{"exactly seven days", model.RequestCancellation, 8, "500"},
		{"five days ahead", model.RequestCancellation, 6, "250"},
		{"exactly three days", model.RequestCancellation, 4, "250"},
		{"one day ahead", model.RequestCancellation, 2, "0"},
		{"already started", model.RequestCancellation, 1, "0"},
		{"service issue ignores timing", model.RequestServiceIssue, 2, "500"},
		{"duplicate payment", model.RequestDuplicatePayment, 1, "500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExpectedRefund(tc.typ, dec("500"), date(2025, 3, tc.start), today)
			assert.True(t, got.Equal(dec(tc.want)), "got %s", got)
		})
	}
}

func TestExpectedRefundRoundsHalf(t *testing.T) {
	got := ExpectedRefund(model.RequestCancellation, dec("99.99"), date(2025, 3, 5), date(2025, 3, 1))
	assert.Equal(t, "50.00", got.StringFixed(2))
}

func TestReviewRefundRejectsUnknownDecision(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	_, err := l.Refunds.ReviewRefund(context.Background(), ReviewInput{RequestID: 1, ReviewerID: 2, Decision: model.RequestCompleted})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = l.Refunds.ReviewRefund(context.Background(), ReviewInput{RequestID: 1, ReviewerID: 2, Decision: model.RequestApproved, Method: "cash"})
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var requestCols = []string{"id", "user_id", "booking_id", "payment_id", "request_type", "reason",
	"expected_amount", "status", "reviewer_id", "admin_notes", "refund_id", "created_at"}

func TestReviewRefundRejectsClosedRequest(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refund_requests WHERE id = ? FOR UPDATE")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow(4, 7, 9, 3, "cancellation", "", "500.00", "rejected", 2, "", nil, fixedNow))
	mock.ExpectRollback()

	_, err := l.Refunds.ReviewRefund(context.Background(), ReviewInput{RequestID: 4, ReviewerID: 2, Decision: model.RequestApproved})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, rec.users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRefundRejects(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refund_requests WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow(4, 7, 9, 3, "cancellation", "", "500.00", "pending", nil, "", nil, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refund_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := l.Refunds.ReviewRefund(context.Background(), ReviewInput{RequestID: 4, ReviewerID: 2, Decision: model.RequestRejected, Notes: " too late "})
	assert.NoError(t, err)
	assert.Equal(t, model.RequestRejected, req.Status)
	assert.Equal(t, "too late", req.AdminNotes)
	if assert.Len(t, rec.users, 1) {
		assert.Contains(t, rec.users[0].Message, "Notes: too late")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawRefundRequestOnlyWhilePending(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refund_requests WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow(4, 7, 9, nil, "other", "", "0", "under_review", 2, "", nil, fixedNow))
	mock.ExpectRollback()

	err := l.Refunds.WithdrawRefundRequest(context.Background(), 4, 7)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRefundValidation(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	_, err := l.Refunds.RequestRefund(context.Background(), RefundRequestInput{UserID: 7, BookingID: 9, Type: "chargeback"})
	var ve *ValidationError
	if assert.ErrorAs(t, err, &ve) {
		assert.Equal(t, "request_type", ve.Fields[0].Field)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRefundValidation(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Refunds.ProcessRefund(ctx, ManualRefundInput{Amount: dec("10")})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = l.Refunds.ProcessRefund(ctx, ManualRefundInput{PaymentID: 3, Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Refunds.ProcessRefund(ctx, ManualRefundInput{PaymentID: 3, Amount: dec("10"), Method: "cheque"})
	assert.ErrorIs(t, err, ErrInvalidMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var refundCols = []string{"id", "payment_id", "booking_id", "user_id", "amount", "method", "type", "reason", "status", "processed_by", "created_at"}

func expectRefundLock(mock sqlmock.Sqlmock, method model.PaymentMethod, status model.RefundStatus) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM refunds WHERE id = ? FOR UPDATE")).
		WithArgs(30).
		WillReturnRows(sqlmock.NewRows(refundCols).
			AddRow(30, 20, 9, 7, "400.00", string(method), "full", "moved away", string(status), 1, fixedNow))
}

func TestConfirmGatewayRefundSucceeded(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectRefundLock(mock, model.MethodGateway, model.RefundProcessing)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refunds SET status = ? WHERE id = ?")).
		WithArgs("completed", 30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	f, err := l.Refunds.ConfirmGatewayRefund(context.Background(), 30, true)
	if assert.NoError(t, err) {
		assert.Equal(t, model.RefundCompleted, f.Status)
	}
	assert.Len(t, rec.users, 1)
	assert.Empty(t, rec.admins)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmGatewayRefundFailedRevertsPayment(t *testing.T) {
	l, mock, rec, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectRefundLock(mock, model.MethodGateway, model.RefundProcessing)
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE id = ? FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "user_id", "method", "gateway_ref", "gateway_response",
			"amount", "status", "refund_amount", "refund_status", "created_at"}).
			AddRow(20, 9, 7, "gateway", "GW-9", "", "1500.00", "partial_refund", "400.00", "partial", fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE payments SET refund_amount = ?, refund_status = ?, status = ? WHERE id = ?")).
		WithArgs("0", "none", "completed", 20).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refunds SET status = ? WHERE id = ?")).
		WithArgs("failed", 30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	f, err := l.Refunds.ConfirmGatewayRefund(context.Background(), 30, false)
	if assert.NoError(t, err) {
		assert.Equal(t, model.RefundFailed, f.Status)
	}
	assert.Len(t, rec.users, 1)
	if assert.Len(t, rec.admins, 1) {
		assert.Equal(t, "30", rec.admins[0].RelatedID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmGatewayRefundRejectsWalletRefund(t *testing.T) {
	l, mock, _, _ := newTestLedger(t)

	mock.ExpectBegin()
	expectRefundLock(mock, model.MethodWallet, model.RefundCompleted)
	mock.ExpectRollback()

	_, err := l.Refunds.ConfirmGatewayRefund(context.Background(), 30, true)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
