package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// calendarStore implements driven.CalendarStore.
type calendarStore struct {
	store *Store
}

var _ driven.CalendarStore = (*calendarStore)(nil)

const calendarColumns = `id, remote_id, name, last_synced_at, last_full_sync_at,
	last_sync_incremental, incremental, created_at, updated_at`

// Save stores or updates a calendar.
func (s *calendarStore) Save(ctx context.Context, cal domain.Calendar) error {
	now := time.Now()
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = now
	}
	if cal.UpdatedAt.IsZero() {
		cal.UpdatedAt = now
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO calendars (`+calendarColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote_id = excluded.remote_id,
			name = excluded.name,
			last_synced_at = excluded.last_synced_at,
			last_full_sync_at = excluded.last_full_sync_at,
			last_sync_incremental = excluded.last_sync_incremental,
			incremental = excluded.incremental,
			updated_at = excluded.updated_at
	`, cal.ID, nullString(cal.RemoteID), cal.Name,
		formatTimePtr(cal.LastSyncedAt), formatTimePtr(cal.LastFullSyncAt),
		boolToInt(cal.LastSyncIncremental), boolToInt(cal.Incremental),
		formatTime(cal.CreatedAt), formatTime(cal.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving calendar: %w", err)
	}
	return nil
}

// Get retrieves a calendar by ID.
func (s *calendarStore) Get(ctx context.Context, id string) (*domain.Calendar, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE id = ?`, id)
	return scanCalendar(row)
}

// GetByRemoteID retrieves a calendar by its remote calendar ID.
func (s *calendarStore) GetByRemoteID(ctx context.Context, remoteID string) (*domain.Calendar, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE remote_id = ?`, remoteID)
	return scanCalendar(row)
}

// List returns all calendars ordered by name.
func (s *calendarStore) List(ctx context.Context) ([]domain.Calendar, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+calendarColumns+` FROM calendars ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("querying calendars: %w", err)
	}
	defer rows.Close()

	var calendars []domain.Calendar //nolint:prealloc // size unknown from query
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, *cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calendars: %w", err)
	}
	return calendars, nil
}

// Delete removes a calendar. Its events, channels and runs cascade.
func (s *calendarStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM calendars WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting calendar: %w", err)
	}
	return nil
}

// AdvanceCursor moves the cursor forward inside a transaction.
func (s *calendarStore) AdvanceCursor(ctx context.Context, id string, ts time.Time, incremental bool) (*domain.Calendar, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = ?`, id)
	cal, err := scanCalendar(row)
	if err != nil {
		return nil, err
	}

	if !cal.AdvanceCursor(ts, incremental) {
		return cal, nil
	}
	cal.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE calendars
		SET last_synced_at = ?, last_full_sync_at = ?, last_sync_incremental = ?, updated_at = ?
		WHERE id = ?
	`, formatTimePtr(cal.LastSyncedAt), formatTimePtr(cal.LastFullSyncAt),
		boolToInt(cal.LastSyncIncremental), formatTime(cal.UpdatedAt), id)
	if err != nil {
		return nil, fmt.Errorf("advancing cursor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cursor: %w", err)
	}
	return cal, nil
}

func scanCalendar(row rowScanner) (*domain.Calendar, error) {
	var cal domain.Calendar
	var remoteID, lastSynced, lastFull sql.NullString
	var lastIncremental, incremental int
	var createdAt, updatedAt string

	if err := row.Scan(&cal.ID, &remoteID, &cal.Name, &lastSynced, &lastFull,
		&lastIncremental, &incremental, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning calendar: %w", err)
	}

	cal.RemoteID = remoteID.String
	cal.LastSyncedAt = parseTimePtr(lastSynced)
	cal.LastFullSyncAt = parseTimePtr(lastFull)
	cal.LastSyncIncremental = lastIncremental == 1
	cal.Incremental = incremental == 1
	cal.CreatedAt = parseTime(createdAt)
	cal.UpdatedAt = parseTime(updatedAt)
	return &cal, nil
}
