package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// eventStore implements driven.EventStore.
type eventStore struct {
	store *Store
}

var _ driven.EventStore = (*eventStore)(nil)

const eventColumns = `id, calendar_id, event_id, instance_id, start_at, end_at, title,
	details, url, remote_updated_at, checked_for_conflicts, created_at, updated_at`

// Find returns the local event for a remote event of a calendar.
func (s *eventStore) Find(ctx context.Context, calendarID, eventID string) (*domain.LocalEvent, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE calendar_id = ? AND event_id = ?`,
		calendarID, eventID)
	return scanEvent(row)
}

// Upsert inserts or updates the event keyed by (calendar_id, event_id).
// The conflict clause makes concurrent upserts of the same pair safe; the
// stored ID and creation time are written back to the event.
func (s *eventStore) Upsert(ctx context.Context, event *domain.LocalEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	now := time.Now()
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := s.store.db.QueryRowContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(calendar_id, event_id) DO UPDATE SET
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			title = excluded.title,
			details = excluded.details,
			url = excluded.url,
			remote_updated_at = excluded.remote_updated_at,
			checked_for_conflicts = excluded.checked_for_conflicts,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`, id, event.CalendarID, event.EventID, event.InstanceID,
		formatTime(event.Start), formatTime(event.End), event.Title,
		event.Details, event.URL, formatNullableTime(event.RemoteUpdatedAt),
		boolToInt(event.CheckedForConflicts), formatTime(now), formatTime(now))

	var createdAt string
	if err := row.Scan(&event.ID, &createdAt); err != nil {
		return fmt.Errorf("saving event: %w", err)
	}
	event.CreatedAt = parseTime(createdAt)
	event.UpdatedAt = now
	return nil
}

// Delete removes an event by local ID.
func (s *eventStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return nil
}

// ListByCalendar returns a calendar's events ordered by start time.
func (s *eventStore) ListByCalendar(ctx context.Context, calendarID string) ([]domain.LocalEvent, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE calendar_id = ? ORDER BY start_at, event_id`,
		calendarID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.LocalEvent //nolint:prealloc // size unknown from query
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// DeleteByCalendar removes all events of a calendar.
func (s *eventStore) DeleteByCalendar(ctx context.Context, calendarID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM events WHERE calendar_id = ?", calendarID); err != nil {
		return fmt.Errorf("deleting events: %w", err)
	}
	return nil
}

func scanEvent(row rowScanner) (*domain.LocalEvent, error) {
	var event domain.LocalEvent
	var start, end, createdAt, updatedAt string
	var remoteUpdated sql.NullString
	var checked int

	if err := row.Scan(&event.ID, &event.CalendarID, &event.EventID, &event.InstanceID,
		&start, &end, &event.Title, &event.Details, &event.URL, &remoteUpdated,
		&checked, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	event.Start = parseTime(start)
	event.End = parseTime(end)
	event.RemoteUpdatedAt = parseNullableTime(remoteUpdated)
	event.CheckedForConflicts = checked == 1
	event.CreatedAt = parseTime(createdAt)
	event.UpdatedAt = parseTime(updatedAt)
	return &event, nil
}
