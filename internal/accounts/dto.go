package accounts

import "github.com/shopspring/decimal"

type CreateAccountRequest struct {
	Name           string           `json:"name" validate:"required,max=100"`
	Color          string           `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Icon           string           `json:"icon,omitempty" validate:"max=16"`
	InitialBalance *decimal.Decimal `json:"initial_balance,omitempty"`
}

// UpdateAccountRequest patches display fields only. Balance is not
// editable here; it moves through transactions.
type UpdateAccountRequest struct {
	Name   *string        `json:"name,omitempty" validate:"omitempty,max=100"`
	Color  *string        `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Icon   *string        `json:"icon,omitempty" validate:"omitempty,max=16"`
	Status *AccountStatus `json:"status,omitempty"`
}
