// Package embedding turns mirrored transactions into vectors and serves
// nearest-neighbor lookups over them.
package embedding

import (
	"strings"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// Render produces the text that gets embedded for one transaction. Account
// names appear twice under different labels; the repetition deliberately
// weights accounts in the vector space, so changing this format invalidates
// every stored vector.
func Render(tx *store.TransactionRow) string {
	parts := []string{tx.Description}

	if tx.SourceName != "" {
		parts = append(parts, "source "+tx.SourceName, "from "+tx.SourceName)
	}
	if tx.DestinationName != "" {
		parts = append(parts, "destination "+tx.DestinationName, "to "+tx.DestinationName)
	}
	if tx.CategoryName != "" {
		parts = append(parts, "category "+tx.CategoryName)
	}
	if len(tx.Tags) > 0 {
		parts = append(parts, "tags "+strings.Join(tx.Tags, ", "))
	}
	if !tx.Amount.IsZero() {
		parts = append(parts, "amount "+tx.Amount.String())
	}

	return strings.Join(parts, " ")
}
