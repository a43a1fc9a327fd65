package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the slice of the auth service's user record the ledger needs.
// WalletBalance is the cached projection of the newest ledger entry.
type User struct {
	ID            uint64          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          string          `json:"role"`
	DateOfBirth   *time.Time      `json:"date_of_birth,omitempty"`
	IsBlocked     bool            `json:"is_blocked"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
