package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/accounts"
	"github.com/molda-invest/api/internal/categories"
)

// TransactionStatus enumerates transaction lifecycle values. REVERSED is
// terminal: the row is removed and only the audit trail remains.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
)

// Transaction records one applied movement together with the account
// balance snapshots taken at application time. Amount, type and account
// binding are immutable after creation; correcting a mistake means
// reverse + recreate so the balance trail stays truthful.
type Transaction struct {
	ID              int64                      `json:"id"`
	ReferenceNumber string                     `json:"reference_number"`
	OwnerID         int64                      `json:"owner_id"`
	AccountID       int64                      `json:"account_id"`
	CategoryID      int64                      `json:"category_id"`
	Description     string                     `json:"description"`
	Amount          decimal.Decimal            `json:"amount"`
	Type            categories.TransactionType `json:"type"`
	Status          TransactionStatus          `json:"status"`
	Date            time.Time                  `json:"date"`
	BalanceBefore   decimal.Decimal            `json:"balance_before"`
	BalanceAfter    decimal.Decimal            `json:"balance_after"`
	Notes           *string                    `json:"notes,omitempty"`
	Tags            []string                   `json:"tags,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// AccountState is the slice of an account row the engine needs while
// holding its row lock.
type AccountState struct {
	ID      int64
	OwnerID int64
	Balance decimal.Decimal
	Status  accounts.AccountStatus
}

// TransferResult carries both legs of a completed transfer.
type TransferResult struct {
	Out     Transaction `json:"out_transaction"`
	In      Transaction `json:"in_transaction"`
	Message string      `json:"message"`
}

// RemovalResult reports the balance restoration performed by a reversal.
type RemovalResult struct {
	Message         string          `json:"message"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}
