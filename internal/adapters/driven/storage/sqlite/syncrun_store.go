package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// Record stores a finished run.
func (s *syncRunStore) Record(ctx context.Context, run domain.SyncRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, calendar_id, strategy, incremental, started_at, ended_at,
			success, error, created, updated, deleted, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CalendarID, run.Strategy, boolToInt(run.Incremental),
		formatTime(run.StartedAt), formatTime(run.EndedAt), boolToInt(run.Success),
		nullString(run.Error), run.Created, run.Updated, run.Deleted, run.Failed)
	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// ListByCalendar returns recent runs, most recent first.
// A non-positive limit returns all runs.
func (s *syncRunStore) ListByCalendar(ctx context.Context, calendarID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, calendar_id, strategy, incremental, started_at, ended_at,
			success, error, created, updated, deleted, failed
		FROM sync_runs WHERE calendar_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, calendarID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.SyncRun
		var startedAt, endedAt string
		var incremental, success int
		var errMsg sql.NullString

		if err := rows.Scan(&run.ID, &run.CalendarID, &run.Strategy, &incremental,
			&startedAt, &endedAt, &success, &errMsg,
			&run.Created, &run.Updated, &run.Deleted, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}

		run.Incremental = incremental == 1
		run.StartedAt = parseTime(startedAt)
		run.EndedAt = parseTime(endedAt)
		run.Success = success == 1
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}
