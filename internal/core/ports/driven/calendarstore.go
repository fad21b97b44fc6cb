package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// CalendarStore persists calendars and their sync cursors.
type CalendarStore interface {
	// Save stores or updates a calendar.
	Save(ctx context.Context, cal domain.Calendar) error

	// Get retrieves a calendar by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Calendar, error)

	// GetByRemoteID retrieves a calendar by its remote calendar ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetByRemoteID(ctx context.Context, remoteID string) (*domain.Calendar, error)

	// List returns all calendars.
	List(ctx context.Context) ([]domain.Calendar, error)

	// Delete removes a calendar.
	Delete(ctx context.Context, id string) error

	// AdvanceCursor moves the calendar's cursor to ts, tagged with the sync
	// mode. The cursor never moves backwards. Returns the stored calendar.
	AdvanceCursor(ctx context.Context, id string, ts time.Time, incremental bool) (*domain.Calendar, error)
}
