package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// EventStore persists local events.
// (CalendarID, EventID) is unique; Upsert must not create duplicates even
// when called concurrently for the same pair.
type EventStore interface {
	// Find returns the local event for a remote event of a calendar.
	// Returns domain.ErrNotFound if it does not exist.
	Find(ctx context.Context, calendarID, eventID string) (*domain.LocalEvent, error)

	// Upsert inserts or updates the event keyed by (CalendarID, EventID),
	// assigning an ID to new events. Invalid events are rejected with
	// domain.ErrInvalidInput.
	Upsert(ctx context.Context, event *domain.LocalEvent) error

	// Delete removes an event by local ID.
	Delete(ctx context.Context, id string) error

	// ListByCalendar returns a calendar's events ordered by start time.
	ListByCalendar(ctx context.Context, calendarID string) ([]domain.LocalEvent, error)

	// DeleteByCalendar removes all events of a calendar.
	DeleteByCalendar(ctx context.Context, calendarID string) error
}
