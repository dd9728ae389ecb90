package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/molda-invest/api/internal/categories"
)

var referencePrefixes = map[categories.TransactionType]string{
	categories.TypeIncome:     "INC",
	categories.TypeExpense:    "EXP",
	categories.TypeInvestment: "INV",
	categories.TypeTransfer:   "TRF",
	categories.TypeDividend:   "DIV",
	categories.TypeRescue:     "RSC",
}

// newReferenceNumber builds a human-readable audit reference of the form
// {prefix}-{unix}-{suffix}. The random suffix keeps collisions negligible;
// the transactions table additionally carries a unique index on it.
func newReferenceNumber(t categories.TransactionType, now time.Time) string {
	prefix, ok := referencePrefixes[t]
	if !ok {
		prefix = "TXN"
	}
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%d-%s", prefix, now.Unix(), hex.EncodeToString(buf[:]))
}
