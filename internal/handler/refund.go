package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/service"
)

// RequestRefund handles POST /v1/refund-requests.
func (h *LedgerHandler) RequestRefund(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		BookingID uint64 `json:"booking_id"`
		Type      string `json:"request_type"`
		Reason    string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	req, err := h.Ledger.Refunds.RequestRefund(c.Request().Context(), service.RefundRequestInput{
		UserID:    userID,
		BookingID: body.BookingID,
		Type:      model.RequestType(strings.ToLower(strings.TrimSpace(body.Type))),
		Reason:    body.Reason,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "refund request submitted", req)
}

// WithdrawRefundRequest handles DELETE /v1/refund-requests/:id.
func (h *LedgerHandler) WithdrawRefundRequest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid refund request id")
	}
	if err := h.Ledger.Refunds.WithdrawRefundRequest(c.Request().Context(), id, userID); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "refund request withdrawn", nil)
}

// ReviewRefund handles PUT /v1/refunds/requests/:id/review (admin).
func (h *LedgerHandler) ReviewRefund(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid refund request id")
	}
	var body struct {
		Status string `json:"status"`
		Notes  string `json:"admin_notes"`
		Method string `json:"refund_method"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	req, err := h.Ledger.Refunds.ReviewRefund(c.Request().Context(), service.ReviewInput{
		RequestID:  id,
		ReviewerID: adminID,
		Decision:   model.RequestStatus(strings.ToLower(strings.TrimSpace(body.Status))),
		Notes:      body.Notes,
		Method:     model.PaymentMethod(strings.ToLower(strings.TrimSpace(body.Method))),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "refund request "+string(req.Status), req)
}

// ProcessRefund handles POST /v1/refunds/process (admin).
func (h *LedgerHandler) ProcessRefund(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		PaymentID uint64          `json:"payment_id"`
		Amount    decimal.Decimal `json:"refund_amount"`
		Type      string          `json:"refund_type"`
		Method    string          `json:"refund_method"`
		Reason    string          `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	f, err := h.Ledger.Refunds.ProcessRefund(c.Request().Context(), service.ManualRefundInput{
		PaymentID: body.PaymentID,
		Amount:    body.Amount,
		Type:      body.Type,
		Method:    model.PaymentMethod(strings.ToLower(strings.TrimSpace(body.Method))),
		Reason:    body.Reason,
		AdminID:   adminID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "refund processed", f)
}

// GatewayRefundResult handles POST /v1/refunds/:id/gateway-result (admin).
func (h *LedgerHandler) GatewayRefundResult(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid refund id")
	}
	var body struct {
		Succeeded *bool `json:"succeeded"`
	}
	if err := c.Bind(&body); err != nil || body.Succeeded == nil {
		return bad(c, "invalid input", service.FieldError{Field: "succeeded", Message: "is required"})
	}
	f, err := h.Ledger.Refunds.ConfirmGatewayRefund(c.Request().Context(), id, *body.Succeeded)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "refund "+string(f.Status), f)
}
