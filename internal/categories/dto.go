package categories

import "github.com/shopspring/decimal"

type CreateCategoryRequest struct {
	Name   string           `json:"name" validate:"required,max=100"`
	Type   TransactionType  `json:"type" validate:"required"`
	Icon   string           `json:"icon,omitempty" validate:"max=16"`
	Color  string           `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Budget *decimal.Decimal `json:"budget,omitempty"`
}

// UpdateCategoryRequest patches display fields. Type changes are accepted
// only while no transaction references the category.
type UpdateCategoryRequest struct {
	Name   *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Icon   *string          `json:"icon,omitempty" validate:"omitempty,max=16"`
	Color  *string          `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Type   *TransactionType `json:"type,omitempty"`
	Budget *decimal.Decimal `json:"budget,omitempty"`
}
