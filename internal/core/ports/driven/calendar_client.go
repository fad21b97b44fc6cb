package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// CalendarClient talks to the remote calendar service.
// A client is owned by a single sync run or request; it keeps per-call state
// (the last response timestamp) and must not be shared across calendars.
type CalendarClient interface {
	// ListEvents returns the timed events of a remote calendar matching query,
	// in the remote's start-time order. All-day events are excluded.
	// Returns domain.ErrMissingCalendarID if calendarID is empty and a
	// *domain.RemoteError for remote failures.
	ListEvents(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.FetchResult, error)

	// LastResultTimestamp returns the server Date of the last successful
	// ListEvents response, or the zero time if there was none.
	LastResultTimestamp() time.Time

	// WatchEvents registers a push-notification channel for a calendar.
	// Calendars that cannot be watched yield a WatchUnsupported result, not an error.
	WatchEvents(ctx context.Context, calendarID string) (*domain.WatchResult, error)

	// StopChannel stops a push-notification channel.
	// Returns domain.ErrMissingChannelID or domain.ErrMissingResourceID on blank input.
	StopChannel(ctx context.Context, channelID, resourceID string) error

	// CalendarExists checks whether a remote calendar is accessible.
	CalendarExists(ctx context.Context, calendarID string) (bool, error)

	// CreateCalendar creates a secondary remote calendar and returns its ID.
	CreateCalendar(ctx context.Context, title string) (string, error)

	// UpdateCalendar renames a remote calendar.
	UpdateCalendar(ctx context.Context, calendarID, title string) error

	// DeleteCalendar deletes a remote calendar. Missing calendars are ignored.
	DeleteCalendar(ctx context.Context, calendarID string) error

	// Close releases resources.
	Close() error
}

// CalendarClientFactory creates calendar clients.
type CalendarClientFactory interface {
	// Create returns a new, independently owned client.
	Create(ctx context.Context) (CalendarClient, error)
}
