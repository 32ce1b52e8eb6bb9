package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// BillRead is one bill resource from the ledger API.
type BillRead struct {
	ID         string         `json:"id"`
	Attributes BillAttributes `json:"attributes"`
}

// BillAttributes holds the bill fields the mirror cares about. The ledger
// sends amounts as decimal strings.
type BillAttributes struct {
	Name      string `json:"name"`
	AmountMin string `json:"amount_min"`
	AmountMax string `json:"amount_max"`
	UpdatedAt string `json:"updated_at"`
}

// ListBills fetches one page of bills. An empty result means the collection
// is exhausted.
func (c *Client) ListBills(ctx context.Context, page int, updatedSince time.Time) ([]BillRead, error) {
	query := url.Values{}
	if !updatedSince.IsZero() {
		query.Set("updated_at", updatedSince.UTC().Format(time.RFC3339))
	}

	items, err := c.listPage(ctx, "/bills", page, query)
	if err != nil {
		return nil, fmt.Errorf("ListBills: %w", err)
	}

	reads := make([]BillRead, 0, len(items))
	for _, item := range items {
		var attrs BillAttributes
		if err := json.Unmarshal(item.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("ListBills: page %d item %s: %w: %v", page, item.ID, ErrDecode, err)
		}
		reads = append(reads, BillRead{ID: item.ID, Attributes: attrs})
	}
	return reads, nil
}
