package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/service"
)

// ProcessPayment handles POST /v1/payments/process.
func (h *LedgerHandler) ProcessPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		BookingID       uint64          `json:"booking_id"`
		Amount          decimal.Decimal `json:"amount"`
		Method          string          `json:"payment_method"`
		GatewayRef      string          `json:"gateway_ref"`
		GatewayResponse string          `json:"gateway_response"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	p, err := h.Ledger.Payments.SettlePayment(c.Request().Context(), service.SettleInput{
		UserID:          userID,
		BookingID:       body.BookingID,
		Amount:          body.Amount,
		Method:          model.PaymentMethod(strings.ToLower(strings.TrimSpace(body.Method))),
		GatewayRef:      body.GatewayRef,
		GatewayResponse: body.GatewayResponse,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "payment processed", p)
}
