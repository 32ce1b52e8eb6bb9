package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

// Re-export interfaces from the shared package so callers wiring this
// implementation can name them without a second import.
type LedgerRepository = store.LedgerRepository
type ReferenceReader = store.ReferenceReader
type EmbeddingRepository = store.EmbeddingRepository
type SyncRunRepository = store.SyncRunRepository

// PostgresLedgerRepository is the concrete implementation of
// store.LedgerRepository backed by Postgres. It holds a shared connection
// pool to avoid opening a new connection for each operation.
type PostgresLedgerRepository struct {
	db *sql.DB
}

var _ store.LedgerRepository = (*PostgresLedgerRepository)(nil)

// NewPostgresLedgerRepository connects to Postgres and returns a repository
// sharing one connection pool.
func NewPostgresLedgerRepository(ctx context.Context, databaseURL string) (*PostgresLedgerRepository, error) {
	db, err := Open(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresLedgerRepository: %w", err)
	}
	return &PostgresLedgerRepository{db: db}, nil
}

// NewPostgresLedgerRepositoryWithDB wraps an existing connection pool.
// The caller keeps ownership of the pool.
func NewPostgresLedgerRepositoryWithDB(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// Close closes the connection pool. This should be called when the
// repository is no longer needed to release resources.
func (r *PostgresLedgerRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside one database transaction. Page writes go through
// here so a page either commits fully or not at all.
func (r *PostgresLedgerRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("withTx: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(rbErr).Msg("withTx: rolling back")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("withTx: committing transaction: %w", err)
	}
	return nil
}

// UpsertAccounts delegates to UpsertAccounts inside one transaction.
func (r *PostgresLedgerRepository) UpsertAccounts(ctx context.Context, rows []*store.AccountRow) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return UpsertAccounts(ctx, tx, rows)
	})
}

// UpsertCategories delegates to UpsertCategories inside one transaction.
func (r *PostgresLedgerRepository) UpsertCategories(ctx context.Context, rows []*store.CategoryRow) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return UpsertCategories(ctx, tx, rows)
	})
}

// UpsertBills delegates to UpsertBills inside one transaction.
func (r *PostgresLedgerRepository) UpsertBills(ctx context.Context, rows []*store.BillRow) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return UpsertBills(ctx, tx, rows)
	})
}

// UpsertTransactions delegates to UpsertTransactions inside one transaction.
func (r *PostgresLedgerRepository) UpsertTransactions(ctx context.Context, rows []*store.TransactionRow) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		return UpsertTransactions(ctx, tx, rows)
	})
}

// ListAccounts delegates to the package-level ListAccounts with the shared pool.
func (r *PostgresLedgerRepository) ListAccounts(ctx context.Context) ([]*store.AccountRow, error) {
	return ListAccounts(ctx, r.db)
}

// ListAccountsByType delegates to the package-level ListAccountsByType with the shared pool.
func (r *PostgresLedgerRepository) ListAccountsByType(ctx context.Context, accountType string) ([]*store.AccountRow, error) {
	return ListAccountsByType(ctx, r.db, accountType)
}

// ListCategories delegates to the package-level ListCategories with the shared pool.
func (r *PostgresLedgerRepository) ListCategories(ctx context.Context) ([]*store.CategoryRow, error) {
	return ListCategories(ctx, r.db)
}

// ListBills delegates to the package-level ListBills with the shared pool.
func (r *PostgresLedgerRepository) ListBills(ctx context.Context) ([]*store.BillRow, error) {
	return ListBills(ctx, r.db)
}

// ListDistinctTags delegates to the package-level ListDistinctTags with the shared pool.
func (r *PostgresLedgerRepository) ListDistinctTags(ctx context.Context) ([]string, error) {
	return ListDistinctTags(ctx, r.db)
}

// GetTransaction delegates to the package-level GetTransaction with the shared pool.
func (r *PostgresLedgerRepository) GetTransaction(ctx context.Context, id int64) (*store.TransactionRow, error) {
	return GetTransaction(ctx, r.db, id)
}

// UpsertEmbedding delegates to the package-level UpsertEmbedding with the shared pool.
func (r *PostgresLedgerRepository) UpsertEmbedding(ctx context.Context, row *store.EmbeddingRow) error {
	return UpsertEmbedding(ctx, r.db, row)
}

// ListEmbeddings delegates to the package-level ListEmbeddings with the shared pool.
func (r *PostgresLedgerRepository) ListEmbeddings(ctx context.Context) ([]*store.EmbeddingRow, error) {
	return ListEmbeddings(ctx, r.db)
}

// ListTransactionsWithoutEmbedding delegates to the package-level function with the shared pool.
func (r *PostgresLedgerRepository) ListTransactionsWithoutEmbedding(ctx context.Context, limit int) ([]*store.TransactionRow, error) {
	return ListTransactionsWithoutEmbedding(ctx, r.db, limit)
}

// StartSyncRun delegates to the package-level StartSyncRun with the shared pool.
func (r *PostgresLedgerRepository) StartSyncRun(ctx context.Context, entity string) (string, error) {
	return StartSyncRun(ctx, r.db, entity)
}

// MarkSyncRunSucceeded delegates to the package-level MarkSyncRunSucceeded with the shared pool.
func (r *PostgresLedgerRepository) MarkSyncRunSucceeded(ctx context.Context, runID string, pages, items int) error {
	return MarkSyncRunSucceeded(ctx, r.db, runID, pages, items)
}

// MarkSyncRunFailed delegates to the package-level MarkSyncRunFailed with the shared pool.
func (r *PostgresLedgerRepository) MarkSyncRunFailed(ctx context.Context, runID string, runErr error) {
	MarkSyncRunFailed(ctx, r.db, runID, runErr)
}

// LastSuccessfulRunStart delegates to the package-level LastSuccessfulRunStart with the shared pool.
func (r *PostgresLedgerRepository) LastSuccessfulRunStart(ctx context.Context, entity string) (time.Time, bool, error) {
	return LastSuccessfulRunStart(ctx, r.db, entity)
}

// ListSyncRuns delegates to the package-level ListSyncRuns with the shared pool.
func (r *PostgresLedgerRepository) ListSyncRuns(ctx context.Context, limit int) ([]*store.SyncRunRow, error) {
	return ListSyncRuns(ctx, r.db, limit)
}
