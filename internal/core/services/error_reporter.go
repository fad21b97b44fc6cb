package services

import (
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// ErrorReporter collects the event failures of one sync run and reports
// them as a single diagnostic, so a bad batch does not raise one alert per
// event. It never returns errors or panics.
type ErrorReporter struct {
	calendarID  string
	incremental bool
	sink        driven.DiagnosticSink
	failures    []domain.EventFailure
}

// NewErrorReporter creates a reporter for a run. sink may be nil.
func NewErrorReporter(calendarID string, incremental bool, sink driven.DiagnosticSink) *ErrorReporter {
	return &ErrorReporter{
		calendarID:  calendarID,
		incremental: incremental,
		sink:        sink,
	}
}

// Record adds a failure for an event.
func (r *ErrorReporter) Record(event domain.RemoteEvent, err error) {
	r.failures = append(r.failures, domain.EventFailure{
		EventID:    event.ID,
		CalendarID: r.calendarID,
		Title:      event.Title,
		Err:        err,
	})
}

// Failures returns the recorded failures.
func (r *ErrorReporter) Failures() []domain.EventFailure {
	return r.failures
}

// Flush sends the recorded failures to the sink as one batch and resets the
// reporter. It returns the batch, or nil when nothing was recorded.
func (r *ErrorReporter) Flush() *domain.SyncFailureBatch {
	if len(r.failures) == 0 {
		return nil
	}

	batch := &domain.SyncFailureBatch{
		CalendarID:  r.calendarID,
		Incremental: r.incremental,
		Failures:    r.failures,
	}
	r.failures = nil

	logger.Warn("%v", batch)
	r.notify(batch)
	return batch
}

func (r *ErrorReporter) notify(batch *domain.SyncFailureBatch) {
	if r.sink == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("diagnostic sink panicked: %v", p)
		}
	}()
	r.sink.Notify(batch)
}
