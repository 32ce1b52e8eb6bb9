package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/firefly-assistant/internal/store"
)

// UpsertCategories writes one page of category rows, overwriting existing
// rows by remote id.
func UpsertCategories(ctx context.Context, q Querier, rows []*store.CategoryRow) error {
	const query = `
		INSERT INTO categories (id, name, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, query, row.ID, row.Name, nullableTime(row.UpdatedAt))
		if err != nil {
			return fmt.Errorf("UpsertCategories: upserting category %d: %w", row.ID, err)
		}
	}

	return nil
}

// ListCategories retrieves all mirrored categories ordered by name.
func ListCategories(ctx context.Context, q Querier) ([]*store.CategoryRow, error) {
	const query = `
		SELECT id, name, updated_at
		FROM categories
		ORDER BY name
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: querying: %w", err)
	}
	defer rows.Close()

	var categories []*store.CategoryRow
	for rows.Next() {
		var row store.CategoryRow
		var updated sql.NullTime
		if err := rows.Scan(&row.ID, &row.Name, &updated); err != nil {
			return nil, fmt.Errorf("ListCategories: scanning row: %w", err)
		}
		row.UpdatedAt = updated.Time
		categories = append(categories, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterating: %w", err)
	}

	return categories, nil
}
