package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// UpsertEmbedding writes the vector for one transaction, overwriting any
// previous vector.
func UpsertEmbedding(ctx context.Context, q Querier, row *store.EmbeddingRow) error {
	const query = `
		INSERT INTO transaction_embeddings (transaction_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (transaction_id) DO UPDATE SET
			embedding = EXCLUDED.embedding
	`

	if _, err := q.ExecContext(ctx, query, row.TransactionID, row.Vector); err != nil {
		return fmt.Errorf("UpsertEmbedding: upserting embedding for transaction %d: %w", row.TransactionID, err)
	}

	return nil
}

// ListEmbeddings retrieves all stored vectors ordered by transaction id.
// The similarity scan depends on this order for stable ranking of ties.
func ListEmbeddings(ctx context.Context, q Querier) ([]*store.EmbeddingRow, error) {
	const query = `
		SELECT transaction_id, embedding
		FROM transaction_embeddings
		ORDER BY transaction_id
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEmbeddings: querying: %w", err)
	}
	defer rows.Close()

	var embeddings []*store.EmbeddingRow
	for rows.Next() {
		var row store.EmbeddingRow
		if err := rows.Scan(&row.TransactionID, &row.Vector); err != nil {
			return nil, fmt.Errorf("ListEmbeddings: scanning row: %w", err)
		}
		embeddings = append(embeddings, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEmbeddings: iterating: %w", err)
	}

	return embeddings, nil
}

// ListTransactionsWithoutEmbedding retrieves up to limit transactions that
// have no stored vector yet, with tags attached, ordered by id. A limit
// <= 0 means no limit. The backfill walks this set, so an interrupted run
// resumes where it stopped without recomputing anything.
func ListTransactionsWithoutEmbedding(ctx context.Context, q Querier, limit int) ([]*store.TransactionRow, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
		WHERE t.id NOT IN (SELECT transaction_id FROM transaction_embeddings)
		GROUP BY t.id
		ORDER BY t.id
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsWithoutEmbedding: querying: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsWithoutEmbedding: %w", err)
	}
	return txs, nil
}
