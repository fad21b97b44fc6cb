package driving

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// SyncEngine reconciles remote calendars into the local event store.
type SyncEngine interface {
	// Sync runs one reconciliation of a calendar with the given strategy.
	// Fetch failures abort the run without advancing the cursor; failures
	// applying single events are reported, not returned.
	Sync(ctx context.Context, calendarID string, strategy domain.SyncStrategy) (*domain.SyncResult, error)

	// SyncAll syncs every calendar. A failing calendar is skipped and its
	// error joined into the returned error; the others still run.
	SyncAll(ctx context.Context, strategy domain.SyncStrategy) ([]domain.SyncResult, error)

	// Status returns the live status of a calendar's sync.
	Status(ctx context.Context, calendarID string) (*SyncStatus, error)
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// CalendarID identifies the calendar.
	CalendarID string

	// Phase is the run's current phase.
	Phase domain.SyncPhase

	// Running indicates if sync is currently in progress.
	Running bool

	// EventsProcessed is the count of events applied so far.
	EventsProcessed int

	// ErrorCount is the number of event failures so far.
	ErrorCount int
}
