package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/categories"
)

type CreateTransactionRequest struct {
	AccountID   int64                      `json:"account_id" validate:"required,gt=0"`
	CategoryID  int64                      `json:"category_id" validate:"required,gt=0"`
	Type        categories.TransactionType `json:"type" validate:"required"`
	Amount      decimal.Decimal            `json:"amount" validate:"required"`
	Date        time.Time                  `json:"date" validate:"required"`
	Description string                     `json:"description" validate:"required,max=255"`
	Notes       *string                    `json:"notes,omitempty"`
	Tags        []string                   `json:"tags,omitempty" validate:"omitempty,dive,max=50"`
}

type CreateTransferRequest struct {
	FromAccountID int64           `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID   int64           `json:"to_account_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	Date          time.Time       `json:"date" validate:"required"`
	Description   string          `json:"description" validate:"required,max=255"`
}

// UpdateTransactionRequest is an explicit patch: one optional field per
// mutable attribute. Amount, type and account id are present only so the
// engine can reject attempts to change them.
type UpdateTransactionRequest struct {
	Description *string                     `json:"description,omitempty" validate:"omitempty,max=255"`
	Notes       *string                     `json:"notes,omitempty"`
	Tags        *[]string                   `json:"tags,omitempty" validate:"omitempty,dive,max=50"`
	CategoryID  *int64                      `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Date        *time.Time                  `json:"date,omitempty"`
	Amount      *decimal.Decimal            `json:"amount,omitempty"`
	Type        *categories.TransactionType `json:"type,omitempty"`
	AccountID   *int64                      `json:"account_id,omitempty"`
}

// ListFilter narrows FindAll. Zero values mean "no constraint".
type ListFilter struct {
	Type       categories.TransactionType
	AccountID  int64
	CategoryID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Limit      int
	Offset     int
}
