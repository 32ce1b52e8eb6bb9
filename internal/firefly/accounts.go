package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// AccountRead is one account resource from the ledger API.
type AccountRead struct {
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

// AccountAttributes holds the account fields the mirror cares about.
// Anything the ledger omits decodes to its zero value.
type AccountAttributes struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	CurrencyCode string `json:"currency_code"`
	UpdatedAt    string `json:"updated_at"`
}

// ListAccounts fetches one page of accounts, already narrowed to the three
// real account kinds. An empty result means the collection is exhausted.
func (c *Client) ListAccounts(ctx context.Context, page int, updatedSince time.Time) ([]AccountRead, error) {
	query := url.Values{}
	query.Set("type", "asset,expense,revenue")
	if !updatedSince.IsZero() {
		query.Set("updated_at", updatedSince.UTC().Format(time.RFC3339))
	}

	items, err := c.listPage(ctx, "/accounts", page, query)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}

	reads := make([]AccountRead, 0, len(items))
	for _, item := range items {
		var attrs AccountAttributes
		if err := json.Unmarshal(item.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("ListAccounts: page %d item %s: %w: %v", page, item.ID, ErrDecode, err)
		}
		reads = append(reads, AccountRead{ID: item.ID, Attributes: attrs})
	}
	return reads, nil
}
