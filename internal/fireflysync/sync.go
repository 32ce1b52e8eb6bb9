// Package fireflysync mirrors the remote ledger's reference data into the
// local store and keeps the embedding index backfilled.
package fireflysync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/embedding"
	"github.com/dvloznov/firefly-assistant/internal/firefly"
	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// Entity names recorded on sync runs. EntityAll is a job-level selector,
// never an entity a run is recorded under.
const (
	EntityAll          = "all"
	EntityAccounts     = "accounts"
	EntityCategories   = "categories"
	EntityBills        = "bills"
	EntityTransactions = "transactions"
)

// ValidEntity reports whether entity names a syncable selection.
func ValidEntity(entity string) bool {
	switch entity {
	case EntityAll, EntityAccounts, EntityCategories, EntityBills, EntityTransactions:
		return true
	}
	return false
}

// fetchPageFunc fetches and stores a single page. fetched is the raw item
// count the remote returned and drives loop termination; stored is how many
// rows actually reached the mirror.
type fetchPageFunc func(ctx context.Context, page int, updatedSince time.Time) (fetched, stored int, err error)

// SyncAll mirrors every entity type, then backfills missing embeddings.
// full forces a complete pull instead of an incremental one.
func SyncAll(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, embedder embedding.Embedder, full bool) error {
	if err := SyncAccounts(ctx, repo, api, full); err != nil {
		return err
	}
	if err := SyncCategories(ctx, repo, api, full); err != nil {
		return err
	}
	if err := SyncBills(ctx, repo, api, full); err != nil {
		return err
	}
	if err := SyncTransactions(ctx, repo, api, full); err != nil {
		return err
	}
	if _, err := BackfillEmbeddings(ctx, repo, embedder, 0); err != nil {
		return err
	}
	return nil
}

// SyncEntity runs the sync selected by entity. EntityAll behaves like
// SyncAll; a transactions-only sync still backfills embeddings, since new
// transactions are what create index gaps.
func SyncEntity(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, embedder embedding.Embedder, entity string, full bool) error {
	switch entity {
	case EntityAll:
		return SyncAll(ctx, repo, api, embedder, full)
	case EntityAccounts:
		return SyncAccounts(ctx, repo, api, full)
	case EntityCategories:
		return SyncCategories(ctx, repo, api, full)
	case EntityBills:
		return SyncBills(ctx, repo, api, full)
	case EntityTransactions:
		if err := SyncTransactions(ctx, repo, api, full); err != nil {
			return err
		}
		_, err := BackfillEmbeddings(ctx, repo, embedder, 0)
		return err
	default:
		return fmt.Errorf("SyncEntity: unknown entity %q", entity)
	}
}

// SyncAccounts mirrors the remote accounts collection. Bookkeeping account
// types are dropped before they reach the store.
func SyncAccounts(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, full bool) error {
	return syncEntity(ctx, repo, EntityAccounts, full, func(ctx context.Context, page int, updatedSince time.Time) (int, int, error) {
		log := logger.FromContext(ctx)

		reads, err := api.ListAccounts(ctx, page, updatedSince)
		if err != nil {
			return 0, 0, err
		}

		rows := make([]*store.AccountRow, 0, len(reads))
		for _, read := range reads {
			row, err := mapAccount(read)
			if err != nil {
				log.Warn().Err(err).Str("account_id", read.ID).Msg("Skipping unmappable account")
				continue
			}
			if row == nil {
				log.Debug().
					Str("account_id", read.ID).
					Str("account_type", read.Attributes.Type).
					Msg("Skipping bookkeeping account")
				continue
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			if err := repo.UpsertAccounts(ctx, rows); err != nil {
				return 0, 0, err
			}
		}
		return len(reads), len(rows), nil
	})
}

// SyncCategories mirrors the remote categories collection.
func SyncCategories(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, full bool) error {
	return syncEntity(ctx, repo, EntityCategories, full, func(ctx context.Context, page int, updatedSince time.Time) (int, int, error) {
		log := logger.FromContext(ctx)

		reads, err := api.ListCategories(ctx, page, updatedSince)
		if err != nil {
			return 0, 0, err
		}

		rows := make([]*store.CategoryRow, 0, len(reads))
		for _, read := range reads {
			row, err := mapCategory(read)
			if err != nil {
				log.Warn().Err(err).Str("category_id", read.ID).Msg("Skipping unmappable category")
				continue
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			if err := repo.UpsertCategories(ctx, rows); err != nil {
				return 0, 0, err
			}
		}
		return len(reads), len(rows), nil
	})
}

// SyncBills mirrors the remote bills collection.
func SyncBills(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, full bool) error {
	return syncEntity(ctx, repo, EntityBills, full, func(ctx context.Context, page int, updatedSince time.Time) (int, int, error) {
		log := logger.FromContext(ctx)

		reads, err := api.ListBills(ctx, page, updatedSince)
		if err != nil {
			return 0, 0, err
		}

		rows := make([]*store.BillRow, 0, len(reads))
		for _, read := range reads {
			row, err := mapBill(read)
			if err != nil {
				log.Warn().Err(err).Str("bill_id", read.ID).Msg("Skipping unmappable bill")
				continue
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			if err := repo.UpsertBills(ctx, rows); err != nil {
				return 0, 0, err
			}
		}
		return len(reads), len(rows), nil
	})
}

// SyncTransactions mirrors the remote transactions collection, exploding
// each transaction's tag list into association rows on the way in.
func SyncTransactions(ctx context.Context, repo store.LedgerRepository, api LedgerAPI, full bool) error {
	return syncEntity(ctx, repo, EntityTransactions, full, func(ctx context.Context, page int, updatedSince time.Time) (int, int, error) {
		log := logger.FromContext(ctx)

		reads, err := api.ListTransactions(ctx, page, updatedSince)
		if err != nil {
			return 0, 0, err
		}

		rows := make([]*store.TransactionRow, 0, len(reads))
		for _, read := range reads {
			row, err := mapTransaction(read)
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", read.ID).Msg("Skipping unmappable transaction")
				continue
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			if err := repo.UpsertTransactions(ctx, rows); err != nil {
				return 0, 0, err
			}
		}
		return len(reads), len(rows), nil
	})
}

// syncEntity drives one recorded sync run: resolve the incremental window,
// then walk pages from 1 until the remote reports an empty page. Every page
// is committed before the next is fetched, so a failed run keeps its
// progress.
func syncEntity(ctx context.Context, repo store.SyncRunRepository, entity string, full bool, fetchPage fetchPageFunc) error {
	log := logger.FromContext(ctx)

	var updatedSince time.Time
	if !full {
		since, ok, err := repo.LastSuccessfulRunStart(ctx, entity)
		if err != nil {
			return fmt.Errorf("syncEntity: %s: resolving incremental window: %w", entity, err)
		}
		if ok {
			updatedSince = since
		}
	}

	runID, err := repo.StartSyncRun(ctx, entity)
	if err != nil {
		return fmt.Errorf("syncEntity: %s: starting run: %w", entity, err)
	}

	log.Info().
		Str("entity", entity).
		Str("run_id", runID).
		Bool("full", updatedSince.IsZero()).
		Msg("Starting ledger sync")

	var pages, items int
	for page := 1; ; page++ {
		fetched, stored, err := fetchPage(ctx, page, updatedSince)
		if err != nil {
			// An undecodable body means the collection is exhausted or the
			// remote changed shape. Committed pages stay; the run still
			// counts as a success.
			if errors.Is(err, firefly.ErrDecode) {
				log.Error().
					Str("entity", entity).
					Int("page", page).
					Err(err).
					Msg("Undecodable page, treating as end of stream")
				break
			}
			repo.MarkSyncRunFailed(ctx, runID, err)
			return fmt.Errorf("syncEntity: %s page %d: %w", entity, page, err)
		}
		if fetched == 0 {
			break
		}
		pages++
		items += stored
	}

	if err := repo.MarkSyncRunSucceeded(ctx, runID, pages, items); err != nil {
		return fmt.Errorf("syncEntity: %s: closing run: %w", entity, err)
	}

	log.Info().
		Str("entity", entity).
		Str("run_id", runID).
		Int("pages", pages).
		Int("items", items).
		Msg("Ledger sync completed")

	return nil
}
