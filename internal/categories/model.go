package categories

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the monetary direction of a movement. Every
// category declares exactly one type, and every transaction referencing a
// category must carry the same type.
type TransactionType string

const (
	TypeIncome     TransactionType = "INCOME"
	TypeExpense    TransactionType = "EXPENSE"
	TypeInvestment TransactionType = "INVESTMENT"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeDividend   TransactionType = "DIVIDEND"
	TypeRescue     TransactionType = "RESCUE"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeInvestment, TypeTransfer, TypeDividend, TypeRescue:
		return true
	}
	return false
}

// Category maps a user-defined label to a transaction type affinity.
type Category struct {
	ID        int64            `json:"id"`
	OwnerID   int64            `json:"owner_id"`
	Name      string           `json:"name"`
	Icon      string           `json:"icon"`
	Color     string           `json:"color"`
	Type      TransactionType  `json:"type"`
	Budget    *decimal.Decimal `json:"budget,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CategoryStats pairs a category with its referencing transaction count.
type CategoryStats struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Icon             string          `json:"icon"`
	Color            string          `json:"color"`
	Type             TransactionType `json:"type"`
	TransactionCount int             `json:"transaction_count"`
}
