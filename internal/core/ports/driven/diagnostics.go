package driven

import (
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// DiagnosticSink receives non-fatal anomalies (unexpected pagination,
// unwatchable calendars, aggregated event failures, hidden webhook causes).
// Notify is fire-and-forget and never blocks the caller.
type DiagnosticSink interface {
	Notify(err error)
}

// SyncMetrics records sync and webhook activity.
type SyncMetrics interface {
	// ObserveSync records a finished run. result is nil when err is not.
	ObserveSync(calendarID string, strategy string, result *domain.SyncResult, err error, elapsed time.Duration)

	// ObserveWebhook records the outcome of a webhook dispatch.
	ObserveWebhook(outcome string)

	// ObserveRetry records one retried remote call.
	ObserveRetry(operation string)
}
