package driven

import (
	"context"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// SyncRunStore records sync history.
type SyncRunStore interface {
	// Record stores a finished run.
	Record(ctx context.Context, run domain.SyncRun) error

	// ListByCalendar returns recent runs, most recent first.
	ListByCalendar(ctx context.Context, calendarID string, limit int) ([]domain.SyncRun, error)
}
