package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// UpsertBills writes one page of bill rows, overwriting existing rows by
// remote id.
func UpsertBills(ctx context.Context, q Querier, rows []*store.BillRow) error {
	const query = `
		INSERT INTO bills (id, name, amount_min, amount_max, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			amount_min = EXCLUDED.amount_min,
			amount_max = EXCLUDED.amount_max,
			updated_at = EXCLUDED.updated_at
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, query,
			row.ID,
			row.Name,
			row.AmountMin,
			row.AmountMax,
			nullableTime(row.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("UpsertBills: upserting bill %d: %w", row.ID, err)
		}
	}

	return nil
}

// ListBills retrieves all mirrored bills ordered by id.
func ListBills(ctx context.Context, q Querier) ([]*store.BillRow, error) {
	const query = `
		SELECT id, name, amount_min, amount_max, updated_at
		FROM bills
		ORDER BY id
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListBills: querying: %w", err)
	}
	defer rows.Close()

	var bills []*store.BillRow
	for rows.Next() {
		var row store.BillRow
		var updated sql.NullTime
		if err := rows.Scan(&row.ID, &row.Name, &row.AmountMin, &row.AmountMax, &updated); err != nil {
			return nil, fmt.Errorf("ListBills: scanning row: %w", err)
		}
		row.UpdatedAt = updated.Time
		bills = append(bills, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBills: iterating: %w", err)
	}

	return bills, nil
}
