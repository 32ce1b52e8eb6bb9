package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// TransactionRead is one transaction resource from the ledger API. The
// ledger models every transaction as a group of splits; this assistant
// only ever looks at the first split.
type TransactionRead struct {
	ID         string                `json:"id"`
	Attributes TransactionAttributes `json:"attributes"`
}

// TransactionAttributes holds the transaction group fields plus its splits.
type TransactionAttributes struct {
	CreatedAt    string             `json:"created_at"`
	UpdatedAt    string             `json:"updated_at"`
	Transactions []TransactionSplit `json:"transactions"`
}

// TransactionSplit is one leg of a transaction group. Ids arrive as
// strings; amounts as decimal strings.
type TransactionSplit struct {
	Type            string   `json:"type"`
	Date            string   `json:"date"`
	Amount          string   `json:"amount"`
	Description     string   `json:"description"`
	CurrencyCode    string   `json:"currency_code"`
	SourceID        string   `json:"source_id"`
	SourceName      string   `json:"source_name"`
	DestinationID   string   `json:"destination_id"`
	DestinationName string   `json:"destination_name"`
	CategoryID      string   `json:"category_id"`
	CategoryName    string   `json:"category_name"`
	Tags            []string `json:"tags"`
}

// ListTransactions fetches one page of transactions. An empty result means
// the collection is exhausted.
func (c *Client) ListTransactions(ctx context.Context, page int, updatedSince time.Time) ([]TransactionRead, error) {
	query := url.Values{}
	if !updatedSince.IsZero() {
		query.Set("updated_at", updatedSince.UTC().Format(time.RFC3339))
	}

	items, err := c.listPage(ctx, "/transactions", page, query)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}

	reads := make([]TransactionRead, 0, len(items))
	for _, item := range items {
		var attrs TransactionAttributes
		if err := json.Unmarshal(item.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("ListTransactions: page %d item %s: %w: %v", page, item.ID, ErrDecode, err)
		}
		reads = append(reads, TransactionRead{ID: item.ID, Attributes: attrs})
	}
	return reads, nil
}
