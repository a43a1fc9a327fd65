package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// RechargeWallet handles POST /v1/wallet/recharge.
func (h *LedgerHandler) RechargeWallet(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var body struct {
		Amount     decimal.Decimal `json:"amount"`
		GatewayRef string          `json:"gateway_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return bad(c, "invalid request body")
	}
	entry, err := h.Ledger.Wallet.Recharge(c.Request().Context(), userID, body.Amount, body.GatewayRef)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, "wallet recharged", entry)
}

// GetWallet handles GET /v1/wallet.
func (h *LedgerHandler) GetWallet(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	bal, err := h.Ledger.Wallet.Balance(c.Request().Context(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "wallet", echo.Map{"user_id": userID, "balance": bal})
}

// WalletTransactions handles GET /v1/wallet/transactions?page=&limit=.
func (h *LedgerHandler) WalletTransactions(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	rows, err := h.Ledger.Wallet.History(c.Request().Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "wallet transactions", rows)
}

// VerifyWallet handles GET /v1/admin/wallets/:id/verify (admin).
func (h *LedgerHandler) VerifyWallet(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return bad(c, "invalid user id")
	}
	if err := h.Ledger.Wallet.VerifyLedger(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, "wallet ledger consistent", nil)
}
