package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus enumerates account lifecycle values.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusClosed    AccountStatus = "CLOSED"
)

// Account holds a monetary balance for one owner. The balance column is
// mutated exclusively through the transaction engine's delta application;
// everything else here is display metadata.
type Account struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	Name      string          `json:"name"`
	Color     string          `json:"color"`
	Icon      string          `json:"icon"`
	Balance   decimal.Decimal `json:"balance"`
	Status    AccountStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
