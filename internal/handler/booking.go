package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/service"
)

type createBookingRequest struct {
	PlanID         uint64          `json:"plan_id"`
	SeatID         uint64          `json:"seat_id"`
	StartDate      string          `json:"start_date"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CreateBooking handles POST /v1/bookings.
func (h *LedgerHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	start, valid := parseDate(body.StartDate)
	if !valid {
		return bad(c, "invalid input", service.FieldError{Field: "start_date", Message: "must be a date in YYYY-MM-DD format"})
	}
	b, err := h.Ledger.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		UserID:         userID,
		PlanID:         body.PlanID,
		SeatID:         body.SeatID,
		StartDate:      start,
		FinalAmount:    body.FinalAmount,
		DiscountAmount: body.DiscountAmount,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "booking created", b)
}

// ListBookings handles GET /v1/bookings?page=&limit=.
func (h *LedgerHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	list, err := h.Ledger.Bookings.ListUserBookings(c.Request().Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "bookings", list)
}

// GetBooking handles GET /v1/bookings/:id.
func (h *LedgerHandler) GetBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return unauthorized(c)
	}
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid booking id")
	}
	b, err := h.Ledger.Bookings.GetBooking(c.Request().Context(), id, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "booking", b)
}

// CancelBooking handles DELETE /v1/bookings/:id.
func (h *LedgerHandler) CancelBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return unauthorized(c)
	}
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid booking id")
	}
	b, err := h.Ledger.Bookings.CancelBooking(c.Request().Context(), id, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "booking cancelled", b)
}
