package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/seat-ledger/internal/repository"
)

// ListPlans handles GET /v1/plans.  It is public and served through the
// response cache.
func (h *LedgerHandler) ListPlans(c echo.Context) error {
	plans, err := h.Ledger.Plans.ListActive(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "plans", plans)
}

// UpdatePlan handles PATCH /v1/plans/:id (admin).  Only the fields present
// in the body are changed.
func (h *LedgerHandler) UpdatePlan(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid plan id")
	}
	var body struct {
		Name         *string          `json:"name"`
		Price        *decimal.Decimal `json:"price"`
		DurationDays *int             `json:"duration_days"`
		IsActive     *bool            `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	p, err := h.Ledger.Plans.UpdatePlan(c.Request().Context(), id, repository.PlanUpdate{
		Name:         body.Name,
		Price:        body.Price,
		DurationDays: body.DurationDays,
		IsActive:     body.IsActive,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if h.OnPlansChanged != nil {
		h.OnPlansChanged(c)
	}
	return ok(c, http.StatusOK, "plan updated", p)
}
