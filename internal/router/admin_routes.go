package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-ledger/internal/middleware"
	"github.com/iliyamo/seat-ledger/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1.
func RegisterAdmin(e *echo.Echo, d Deps) {
	h := d.Ledger
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Refunds ----
	g.PUT("/refunds/requests/:id/review", h.ReviewRefund)
	g.POST("/refunds/process", h.ProcessRefund)
	g.POST("/refunds/:id/gateway-result", h.GatewayRefundResult)

	// ---- Advance bookings ----
	g.POST("/advance-bookings/:id/convert", h.ConvertAdvanceBooking)

	// ---- Catalogue ----
	g.PATCH("/plans/:id", h.UpdatePlan)

	// ---- Audit ----
	g.GET("/admin/wallets/:id/verify", h.VerifyWallet)
}
