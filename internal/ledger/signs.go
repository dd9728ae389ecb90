package ledger

import "github.com/molda-invest/api/internal/categories"

// signTable centralises balance arithmetic per transaction type. Adding a
// type is a one-line change here instead of a scattered edit across the
// engine.
var signTable = map[categories.TransactionType]int{
	categories.TypeIncome:     +1,
	categories.TypeDividend:   +1,
	categories.TypeRescue:     +1,
	categories.TypeExpense:    -1,
	categories.TypeInvestment: -1,
	// TRANSFER never moves through the single-leg path; its legs carry
	// explicit debit/credit signs in CreateTransfer.
	categories.TypeTransfer: 0,
}

// signOf returns the balance multiplier for a type. The boolean is false
// for unknown types.
func signOf(t categories.TransactionType) (int, bool) {
	sign, ok := signTable[t]
	return sign, ok
}

// deductsFromBalance reports whether the insufficient-balance guard
// applies. Only deducting types are guarded; credits may always post.
func deductsFromBalance(t categories.TransactionType) bool {
	sign, ok := signTable[t]
	return ok && sign < 0
}
