package firefly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// CategoryRead is one category resource from the ledger API.
type CategoryRead struct {
	ID         string             `json:"id"`
	Attributes CategoryAttributes `json:"attributes"`
}

// CategoryAttributes holds the category fields the mirror cares about.
type CategoryAttributes struct {
	Name      string `json:"name"`
	UpdatedAt string `json:"updated_at"`
}

// ListCategories fetches one page of categories. An empty result means the
// collection is exhausted.
func (c *Client) ListCategories(ctx context.Context, page int, updatedSince time.Time) ([]CategoryRead, error) {
	query := url.Values{}
	if !updatedSince.IsZero() {
		query.Set("updated_at", updatedSince.UTC().Format(time.RFC3339))
	}

	items, err := c.listPage(ctx, "/categories", page, query)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}

	reads := make([]CategoryRead, 0, len(items))
	for _, item := range items {
		var attrs CategoryAttributes
		if err := json.Unmarshal(item.Attributes, &attrs); err != nil {
			return nil, fmt.Errorf("ListCategories: page %d item %s: %w: %v", page, item.ID, ErrDecode, err)
		}
		reads = append(reads, CategoryRead{ID: item.ID, Attributes: attrs})
	}
	return reads, nil
}
