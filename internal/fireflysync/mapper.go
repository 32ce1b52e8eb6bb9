package fireflysync

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// Account types the ledger creates for its own bookkeeping. They are never
// mirrored.
var excludedAccountTypes = map[string]bool{
	"reconciliation":  true,
	"initial-balance": true,
}

// mapAccount converts an API account read to a mirror row. Returns a nil
// row for bookkeeping account types.
func mapAccount(read firefly.AccountRead) (*store.AccountRow, error) {
	if excludedAccountTypes[read.Attributes.Type] {
		return nil, nil
	}
	id, err := strconv.ParseInt(read.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mapAccount: id %q: %w", read.ID, err)
	}
	return &store.AccountRow{
		ID:        id,
		Name:      read.Attributes.Name,
		Type:      read.Attributes.Type,
		Currency:  read.Attributes.CurrencyCode,
		UpdatedAt: parseTimestamp(read.Attributes.UpdatedAt),
	}, nil
}

// mapCategory converts an API category read to a mirror row.
func mapCategory(read firefly.CategoryRead) (*store.CategoryRow, error) {
	id, err := strconv.ParseInt(read.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mapCategory: id %q: %w", read.ID, err)
	}
	return &store.CategoryRow{
		ID:        id,
		Name:      read.Attributes.Name,
		UpdatedAt: parseTimestamp(read.Attributes.UpdatedAt),
	}, nil
}

// mapBill converts an API bill read to a mirror row.
func mapBill(read firefly.BillRead) (*store.BillRow, error) {
	id, err := strconv.ParseInt(read.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mapBill: id %q: %w", read.ID, err)
	}
	return &store.BillRow{
		ID:        id,
		Name:      read.Attributes.Name,
		AmountMin: parseAmount(read.Attributes.AmountMin),
		AmountMax: parseAmount(read.Attributes.AmountMax),
		UpdatedAt: parseTimestamp(read.Attributes.UpdatedAt),
	}, nil
}

// mapTransaction converts an API transaction read to a mirror row. Grouped
// transactions are flattened to their first split.
func mapTransaction(read firefly.TransactionRead) (*store.TransactionRow, error) {
	id, err := strconv.ParseInt(read.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("mapTransaction: id %q: %w", read.ID, err)
	}
	if len(read.Attributes.Transactions) == 0 {
		return nil, fmt.Errorf("mapTransaction: id %s: no splits", read.ID)
	}

	split := read.Attributes.Transactions[0]
	return &store.TransactionRow{
		ID:              id,
		Type:            split.Type,
		Description:     split.Description,
		Amount:          parseAmount(split.Amount),
		Currency:        split.CurrencyCode,
		SourceID:        parseOptionalID(split.SourceID),
		SourceName:      split.SourceName,
		DestinationID:   parseOptionalID(split.DestinationID),
		DestinationName: split.DestinationName,
		CategoryID:      parseOptionalID(split.CategoryID),
		CategoryName:    split.CategoryName,
		Tags:            split.Tags,
		CreatedAt:       parseTimestamp(read.Attributes.CreatedAt),
		UpdatedAt:       parseTimestamp(read.Attributes.UpdatedAt),
	}, nil
}

// parseOptionalID converts an optional string id. Empty or malformed values
// mean the ledger reported none.
func parseOptionalID(s string) int64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// parseAmount converts a decimal string. Empty or malformed values default
// to zero.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTimestamp converts an RFC 3339 timestamp. Empty or malformed values
// map to the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
