package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-ledger/internal/service"
)

// CreateAdvanceBooking handles POST /v1/advance-bookings.
func (h *LedgerHandler) CreateAdvanceBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		PlanID    uint64 `json:"plan_id"`
		SeatID    uint64 `json:"seat_id"`
		StartDate string `json:"start_date"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	start, valid := parseDate(body.StartDate)
	if !valid {
		return bad(c, "invalid input", service.FieldError{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	a, err := h.Ledger.Advance.CreateAdvanceBooking(c.Request().Context(), service.AdvanceInput{
		UserID:    userID,
		PlanID:    body.PlanID,
		SeatID:    body.SeatID,
		StartDate: start,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "advance booking scheduled", a)
}

// CancelAdvanceBooking handles DELETE /v1/advance-bookings/:id.
func (h *LedgerHandler) CancelAdvanceBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return unauthorized(c)
	}
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid advance booking id")
	}
	a, err := h.Ledger.Advance.CancelAdvanceBooking(c.Request().Context(), id, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "advance booking cancelled", a)
}

// ConvertAdvanceBooking handles POST /v1/advance-bookings/:id/convert (admin).
func (h *LedgerHandler) ConvertAdvanceBooking(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid advance booking id")
	}
	b, err := h.Ledger.Advance.ConvertAdvanceBooking(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "advance booking converted", b)
}
