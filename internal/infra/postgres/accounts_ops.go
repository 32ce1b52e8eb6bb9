package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// UpsertAccounts writes one page of account rows, overwriting existing rows
// by remote id so a re-run never duplicates accounts.
func UpsertAccounts(ctx context.Context, q Querier, rows []*store.AccountRow) error {
	const query = `
		INSERT INTO accounts (id, name, type, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, query,
			row.ID,
			row.Name,
			row.Type,
			row.Currency,
			nullableTime(row.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("UpsertAccounts: upserting account %d: %w", row.ID, err)
		}
	}

	return nil
}

// ListAccounts retrieves all mirrored accounts ordered by id.
func ListAccounts(ctx context.Context, q Querier) ([]*store.AccountRow, error) {
	const query = `
		SELECT id, name, type, currency, updated_at
		FROM accounts
		ORDER BY id
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: querying: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

// ListAccountsByType retrieves mirrored accounts of one type ordered by id.
func ListAccountsByType(ctx context.Context, q Querier, accountType string) ([]*store.AccountRow, error) {
	const query = `
		SELECT id, name, type, currency, updated_at
		FROM accounts
		WHERE type = $1
		ORDER BY id
	`

	rows, err := q.QueryContext(ctx, query, accountType)
	if err != nil {
		return nil, fmt.Errorf("ListAccountsByType: querying: %w", err)
	}
	defer rows.Close()

	return scanAccounts(rows)
}

func scanAccounts(rows *sql.Rows) ([]*store.AccountRow, error) {
	var accounts []*store.AccountRow
	for rows.Next() {
		var row store.AccountRow
		var updated sql.NullTime
		if err := rows.Scan(&row.ID, &row.Name, &row.Type, &row.Currency, &updated); err != nil {
			return nil, fmt.Errorf("scanAccounts: scanning row: %w", err)
		}
		row.UpdatedAt = updated.Time
		accounts = append(accounts, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scanAccounts: iterating: %w", err)
	}
	return accounts, nil
}
