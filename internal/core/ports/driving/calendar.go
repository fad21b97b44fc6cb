package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// CalendarService manages local calendars and their remote counterparts.
type CalendarService interface {
	// Add links an existing remote calendar, verifying it is accessible.
	Add(ctx context.Context, remoteID, name string) (*domain.Calendar, error)

	// Create creates a new remote calendar and links it.
	Create(ctx context.Context, title string) (*domain.Calendar, error)

	// Rename renames the calendar locally and remotely.
	Rename(ctx context.Context, id, name string) error

	// Remove stops active channels and deletes the calendar with its events.
	// When deleteRemote is true the remote calendar is deleted as well.
	Remove(ctx context.Context, id string, deleteRemote bool) error

	// Get retrieves a calendar by ID.
	Get(ctx context.Context, id string) (*domain.Calendar, error)

	// List returns all calendars.
	List(ctx context.Context) ([]domain.Calendar, error)

	// Events returns the local events of a calendar.
	Events(ctx context.Context, id string) ([]domain.LocalEvent, error)

	// History returns recent sync runs of a calendar.
	History(ctx context.Context, id string, limit int) ([]domain.SyncRun, error)
}
