package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-ledger/internal/middleware"
	"github.com/iliyamo/seat-ledger/internal/model"
)

func cacheFor(d Deps) echo.MiddlewareFunc {
	return middleware.NewRedisCache(d.Cache, d.Redis)
}

// RegisterLedger registers user-scoped endpoints under /v1.  All routes
// require a valid JWT; admins may use them too.  Ownership of bookings and
// requests is checked by the services.
func RegisterLedger(e *echo.Echo, d Deps) {
	h := d.Ledger
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)

	g.POST("/bookings", h.CreateBooking)
	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)

	g.POST("/advance-bookings", h.CreateAdvanceBooking)
	g.DELETE("/advance-bookings/:id", h.CancelAdvanceBooking)

	g.POST("/payments/process", h.ProcessPayment)

	g.GET("/wallet", h.GetWallet)
	g.POST("/wallet/recharge", h.RechargeWallet)
	g.GET("/wallet/transactions", h.WalletTransactions)

	g.POST("/refund-requests", h.RequestRefund)
	g.DELETE("/refund-requests/:id", h.WithdrawRefundRequest)
}
