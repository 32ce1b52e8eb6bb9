package intent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// BuildContext renders the entire mirror into the labeled text block fed
// to the extraction model: known accounts, categories, tags and bills.
// Every section carries an explicit placeholder when empty; nothing is
// paginated or truncated, personal-finance volumes keep this small.
func BuildContext(ctx context.Context, reader store.ReferenceReader) (string, error) {
	accounts, err := reader.ListAccounts(ctx)
	if err != nil {
		return "", fmt.Errorf("BuildContext: loading accounts: %w", err)
	}
	categories, err := reader.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("BuildContext: loading categories: %w", err)
	}
	tags, err := reader.ListDistinctTags(ctx)
	if err != nil {
		return "", fmt.Errorf("BuildContext: loading tags: %w", err)
	}
	bills, err := reader.ListBills(ctx)
	if err != nil {
		return "", fmt.Errorf("BuildContext: loading bills: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	sort.Slice(bills, func(i, j int) bool { return bills[i].Name < bills[j].Name })

	var b strings.Builder

	b.WriteString("## KNOWN ACCOUNTS:\n")
	if len(accounts) > 0 {
		for _, acc := range accounts {
			fmt.Fprintf(&b, "  - %q → %d\n", acc.Name, acc.ID)
		}
	} else {
		b.WriteString("  (No accounts found.)\n")
	}
	b.WriteString("\n")

	b.WriteString("## KNOWN CATEGORIES:\n")
	if len(categories) > 0 {
		for _, cat := range categories {
			fmt.Fprintf(&b, "  - %s\n", cat.Name)
		}
	} else {
		b.WriteString("  (No categories found.)\n")
	}
	b.WriteString("\n")

	b.WriteString("## KNOWN TAGS:\n")
	if len(tags) > 0 {
		for _, tag := range tags {
			fmt.Fprintf(&b, "  - %s\n", tag)
		}
	} else {
		b.WriteString("  (No tags found.)\n")
	}
	b.WriteString("\n")

	b.WriteString("## KNOWN BILLS:\n")
	if len(bills) > 0 {
		for _, bill := range bills {
			fmt.Fprintf(&b, "  - %q → %d\n", bill.Name, bill.ID)
		}
	} else {
		b.WriteString("  (No bills found.)\n")
	}

	return b.String(), nil
}
