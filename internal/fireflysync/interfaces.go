package fireflysync

import (
	"context"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/firefly"
)

// LedgerAPI defines the paginated read surface of the remote ledger.
// This interface enables mocking and testing of sync runs.
type LedgerAPI interface {
	// ListAccounts fetches one page of accounts updated since the given time.
	ListAccounts(ctx context.Context, page int, updatedSince time.Time) ([]firefly.AccountRead, error)

	// ListCategories fetches one page of categories updated since the given time.
	ListCategories(ctx context.Context, page int, updatedSince time.Time) ([]firefly.CategoryRead, error)

	// ListBills fetches one page of bills updated since the given time.
	ListBills(ctx context.Context, page int, updatedSince time.Time) ([]firefly.BillRead, error)

	// ListTransactions fetches one page of transactions updated since the given time.
	ListTransactions(ctx context.Context, page int, updatedSince time.Time) ([]firefly.TransactionRead, error)
}

// Compile-time check that the HTTP client satisfies the interface.
var _ LedgerAPI = (*firefly.Client)(nil)
