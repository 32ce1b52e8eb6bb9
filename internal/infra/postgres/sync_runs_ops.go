package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/firefly-assistant/internal/logger"
	"github.com/dvloznov/firefly-assistant/internal/store"
)

const syncRunErrorMaxLen = 2000

// StartSyncRun inserts a new row into sync_runs with status=RUNNING and
// returns the generated run id.
func StartSyncRun(ctx context.Context, q Querier, entity string) (string, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()

	const query = `
		INSERT INTO sync_runs (run_id, entity, started_ts, status)
		VALUES ($1, $2, $3, 'RUNNING')
	`

	if _, err := q.ExecContext(ctx, query, runID, entity, started); err != nil {
		return "", fmt.Errorf("StartSyncRun: inserting run: %w", err)
	}

	return runID, nil
}

// MarkSyncRunSucceeded sets status=SUCCESS, finished_ts and the page/item
// counters, and clears error_message.
func MarkSyncRunSucceeded(ctx context.Context, q Querier, runID string, pages, items int) error {
	const query = `
		UPDATE sync_runs
		SET status = 'SUCCESS',
		    finished_ts = $1,
		    pages = $2,
		    items = $3,
		    error_message = ''
		WHERE run_id = $4
	`

	if _, err := q.ExecContext(ctx, query, time.Now().UTC(), pages, items, runID); err != nil {
		return fmt.Errorf("MarkSyncRunSucceeded: updating run: %w", err)
	}

	return nil
}

// MarkSyncRunFailed sets status=FAILED, finished_ts and error_message.
// Failures to record the failure are logged, not returned; the run error
// itself is what the caller cares about.
func MarkSyncRunFailed(ctx context.Context, q Querier, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > syncRunErrorMaxLen {
			errMsg = errMsg[:syncRunErrorMaxLen]
		}
	}

	const query = `
		UPDATE sync_runs
		SET status = 'FAILED',
		    finished_ts = $1,
		    error_message = $2
		WHERE run_id = $3
	`

	if _, err := q.ExecContext(ctx, query, time.Now().UTC(), errMsg, runID); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkSyncRunFailed: updating run")
	}
}

// LastSuccessfulRunStart returns the started_ts of the most recent SUCCESS
// run for entity. ok is false when no such run exists.
func LastSuccessfulRunStart(ctx context.Context, q Querier, entity string) (time.Time, bool, error) {
	const query = `
		SELECT started_ts
		FROM sync_runs
		WHERE entity = $1 AND status = 'SUCCESS'
		ORDER BY started_ts DESC
		LIMIT 1
	`

	var started time.Time
	err := q.QueryRowContext(ctx, query, entity).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("LastSuccessfulRunStart: querying: %w", err)
	}

	return started, true, nil
}

// ListSyncRuns retrieves the most recent runs, newest first.
func ListSyncRuns(ctx context.Context, q Querier, limit int) ([]*store.SyncRunRow, error) {
	query := `
		SELECT run_id, entity, started_ts, finished_ts, status, error_message, pages, items
		FROM sync_runs
		ORDER BY started_ts DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListSyncRuns: querying: %w", err)
	}
	defer rows.Close()

	var runs []*store.SyncRunRow
	for rows.Next() {
		var row store.SyncRunRow
		err := rows.Scan(
			&row.RunID, &row.Entity, &row.StartedTS, &row.FinishedTS,
			&row.Status, &row.ErrorMessage, &row.Pages, &row.Items,
		)
		if err != nil {
			return nil, fmt.Errorf("ListSyncRuns: scanning row: %w", err)
		}
		runs = append(runs, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListSyncRuns: iterating: %w", err)
	}

	return runs, nil
}
