package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// transactionColumns is the SELECT shape shared by every transaction read,
// with tags aggregated into a text array. DISTINCT keeps legacy duplicate
// tag rows harmless.
const transactionColumns = `
	t.id, t.type, t.description, t.amount, t.currency_code,
	COALESCE(t.source_id, 0), t.source_name,
	COALESCE(t.destination_id, 0), t.destination_name,
	COALESCE(t.category_id, 0), t.category_name,
	t.created_at, t.updated_at,
	COALESCE(array_agg(DISTINCT tt.name) FILTER (WHERE tt.name IS NOT NULL), '{}')
`

// UpsertTransactions writes one page of transaction rows, overwriting
// existing rows by remote id and exploding each row's tags into
// association rows. Tag rows are append-only; the (transaction_id, name)
// uniqueness constraint makes re-runs idempotent.
func UpsertTransactions(ctx context.Context, q Querier, rows []*store.TransactionRow) error {
	const insertTransaction = `
		INSERT INTO transactions (
			id, type, description, amount, currency_code,
			source_id, source_name, destination_id, destination_name,
			category_id, category_name, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			amount = EXCLUDED.amount,
			currency_code = EXCLUDED.currency_code,
			source_id = EXCLUDED.source_id,
			source_name = EXCLUDED.source_name,
			destination_id = EXCLUDED.destination_id,
			destination_name = EXCLUDED.destination_name,
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	const insertTag = `
		INSERT INTO transaction_tags (transaction_id, name)
		VALUES ($1, $2)
		ON CONFLICT (transaction_id, name) DO NOTHING
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, insertTransaction,
			row.ID,
			row.Type,
			row.Description,
			row.Amount,
			row.Currency,
			nullableID(row.SourceID),
			row.SourceName,
			nullableID(row.DestinationID),
			row.DestinationName,
			nullableID(row.CategoryID),
			row.CategoryName,
			nullableTime(row.CreatedAt),
			nullableTime(row.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("UpsertTransactions: upserting transaction %d: %w", row.ID, err)
		}

		for _, tag := range row.Tags {
			if tag == "" {
				continue
			}
			if _, err := q.ExecContext(ctx, insertTag, row.ID, tag); err != nil {
				return fmt.Errorf("UpsertTransactions: inserting tag %q for transaction %d: %w", tag, row.ID, err)
			}
		}
	}

	return nil
}

// GetTransaction retrieves one mirrored transaction with its tags, or nil
// when the id is not mirrored.
func GetTransaction(ctx context.Context, q Querier, id int64) (*store.TransactionRow, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
		WHERE t.id = $1
		GROUP BY t.id
	`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: querying: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return txs[0], nil
}

// ListDistinctTags retrieves the distinct tag names across all
// transactions, ordered by name.
func ListDistinctTags(ctx context.Context, q Querier) ([]string, error) {
	const query = `
		SELECT DISTINCT name
		FROM transaction_tags
		ORDER BY name
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListDistinctTags: querying: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ListDistinctTags: scanning row: %w", err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDistinctTags: iterating: %w", err)
	}

	return tags, nil
}

func scanTransactions(rows *sql.Rows) ([]*store.TransactionRow, error) {
	var txs []*store.TransactionRow
	for rows.Next() {
		var row store.TransactionRow
		var created, updated sql.NullTime
		var tags pq.StringArray
		err := rows.Scan(
			&row.ID, &row.Type, &row.Description, &row.Amount, &row.Currency,
			&row.SourceID, &row.SourceName,
			&row.DestinationID, &row.DestinationName,
			&row.CategoryID, &row.CategoryName,
			&created, &updated,
			&tags,
		)
		if err != nil {
			return nil, fmt.Errorf("scanTransactions: scanning row: %w", err)
		}
		row.CreatedAt = created.Time
		row.UpdatedAt = updated.Time
		row.Tags = []string(tags)
		txs = append(txs, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanTransactions: iterating: %w", err)
	}
	return txs, nil
}
