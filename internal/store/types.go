package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRepository provides an interface for all reference-store database
// operations. The sync engine is its primary consumer; read-only callers
// should depend on the narrower interfaces below instead.
type LedgerRepository interface {
	// UpsertAccounts writes one page of account rows in a single transaction.
	UpsertAccounts(ctx context.Context, rows []*AccountRow) error

	// UpsertCategories writes one page of category rows in a single transaction.
	UpsertCategories(ctx context.Context, rows []*CategoryRow) error

	// UpsertBills writes one page of bill rows in a single transaction.
	UpsertBills(ctx context.Context, rows []*BillRow) error

	// UpsertTransactions writes one page of transaction rows in a single
	// transaction, exploding each row's tags into association rows.
	UpsertTransactions(ctx context.Context, rows []*TransactionRow) error

	ReferenceReader
	EmbeddingRepository
	SyncRunRepository
}

// ReferenceReader provides read access to the mirrored ledger entities.
type ReferenceReader interface {
	// ListAccounts retrieves all mirrored accounts ordered by id.
	ListAccounts(ctx context.Context) ([]*AccountRow, error)

	// ListAccountsByType retrieves mirrored accounts of one type ordered by id.
	ListAccountsByType(ctx context.Context, accountType string) ([]*AccountRow, error)

	// ListCategories retrieves all mirrored categories ordered by name.
	ListCategories(ctx context.Context) ([]*CategoryRow, error)

	// ListBills retrieves all mirrored bills ordered by id.
	ListBills(ctx context.Context) ([]*BillRow, error)

	// ListDistinctTags retrieves the distinct tag names across all
	// transactions, ordered by name. Read-time dedup keeps legacy duplicate
	// association rows harmless.
	ListDistinctTags(ctx context.Context) ([]string, error)

	// GetTransaction retrieves one mirrored transaction with its tags, or
	// nil when the id is not mirrored.
	GetTransaction(ctx context.Context, id int64) (*TransactionRow, error)
}

// EmbeddingRepository provides storage for transaction embedding vectors.
type EmbeddingRepository interface {
	// UpsertEmbedding writes the vector for one transaction.
	UpsertEmbedding(ctx context.Context, row *EmbeddingRow) error

	// ListEmbeddings retrieves all stored vectors ordered by transaction id.
	ListEmbeddings(ctx context.Context) ([]*EmbeddingRow, error)

	// ListTransactionsWithoutEmbedding retrieves up to limit transactions
	// that have no stored vector yet, with tags attached, ordered by id.
	// A limit <= 0 means no limit.
	ListTransactionsWithoutEmbedding(ctx context.Context, limit int) ([]*TransactionRow, error)
}

// SyncRunRepository records sync-run history per entity.
type SyncRunRepository interface {
	// StartSyncRun inserts a new run with status=RUNNING and returns its id.
	StartSyncRun(ctx context.Context, entity string) (string, error)

	// MarkSyncRunSucceeded sets status=SUCCESS, finished_ts and counters.
	MarkSyncRunSucceeded(ctx context.Context, runID string, pages, items int) error

	// MarkSyncRunFailed sets status=FAILED, finished_ts and error_message.
	MarkSyncRunFailed(ctx context.Context, runID string, runErr error)

	// LastSuccessfulRunStart returns the started_ts of the most recent
	// SUCCESS run for entity. ok is false when no such run exists.
	LastSuccessfulRunStart(ctx context.Context, entity string) (t time.Time, ok bool, err error)

	// ListSyncRuns retrieves the most recent runs, newest first.
	ListSyncRuns(ctx context.Context, limit int) ([]*SyncRunRow, error)
}

// AccountRow represents a mirrored ledger account.
type AccountRow struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryRow represents a mirrored ledger category.
type CategoryRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BillRow represents a mirrored ledger bill (recurring expense).
type BillRow struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	AmountMin decimal.Decimal `json:"amount_min"`
	AmountMax decimal.Decimal `json:"amount_max"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionRow represents one mirrored ledger transaction. Grouped
// transactions are flattened to their first split upstream; the mirror only
// ever sees one split per transaction.
type TransactionRow struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency_code"`

	// SourceID, DestinationID and CategoryID are remote ids; 0 means the
	// ledger reported none.
	SourceID        int64  `json:"source_id"`
	SourceName      string `json:"source_name"`
	DestinationID   int64  `json:"destination_id"`
	DestinationName string `json:"destination_name"`
	CategoryID      int64  `json:"category_id"`
	CategoryName    string `json:"category_name"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmbeddingRow represents the stored embedding vector for one transaction.
// Vector holds the raw little-endian float32 bytes; decoding and
// dimensionality checks live with the index, not the store.
type EmbeddingRow struct {
	TransactionID int64
	Vector        []byte
}

// SyncRunRow represents one sync run for one entity type.
type SyncRunRow struct {
	RunID  string `json:"run_id"`
	Entity string `json:"entity"`

	StartedTS  time.Time    `json:"started_ts"`
	FinishedTS sql.NullTime `json:"finished_ts"`

	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	Pages int `json:"pages"`
	Items int `json:"items"`
}
