package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncEngine = (*SyncEngine)(nil)

var syncLog = logger.Named("sync")

// SyncEngine reconciles remote calendars into the local event store.
//
// A run fetches the remote delta, applies creates and updates, removes
// cancelled events (and, after a complete full fetch, local events the
// remote no longer returns) and only then advances the calendar's cursor. Runs for
// the same calendar are serialised; different calendars may sync
// concurrently, each with its own calendar client.
type SyncEngine struct {
	calendars driven.CalendarStore
	events    driven.EventStore
	runs      driven.SyncRunStore
	factory   driven.CalendarClientFactory
	source    *SyncDataSource
	sink      driven.DiagnosticSink
	metrics   driven.SyncMetrics

	now   func() time.Time
	newID func() string

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncEngine creates a new sync engine.
// runs, sink and metrics are optional.
func NewSyncEngine(
	calendars driven.CalendarStore,
	events driven.EventStore,
	runs driven.SyncRunStore,
	factory driven.CalendarClientFactory,
	source *SyncDataSource,
	sink driven.DiagnosticSink,
	metrics driven.SyncMetrics,
) *SyncEngine {
	return &SyncEngine{
		calendars:   calendars,
		events:      events,
		runs:        runs,
		factory:     factory,
		source:      source,
		sink:        sink,
		metrics:     metrics,
		now:         time.Now,
		newID:       uuid.NewString,
		locks:       make(map[string]chan struct{}),
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
}

// Sync runs one reconciliation of a calendar.
func (e *SyncEngine) Sync(ctx context.Context, calendarID string, strategy domain.SyncStrategy) (*domain.SyncResult, error) {
	cal, err := e.calendars.Get(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	if !cal.Syncable() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotSyncable, calendarID)
	}
	if e.factory == nil {
		return nil, fmt.Errorf("create calendar client: client factory not configured")
	}

	unlock, err := e.lock(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read after acquiring the lock so a queued run sees the cursor
	// committed by the run before it.
	cal, err = e.calendars.Get(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}

	status := &driving.SyncStatus{CalendarID: calendarID, Phase: domain.PhaseFetching, Running: true}
	e.setStatus(calendarID, status)
	defer e.clearStatus(calendarID)

	result := &domain.SyncResult{
		RunID:      e.newID(),
		CalendarID: calendarID,
		Strategy:   strategy.Name,
		StartedAt:  e.now(),
	}
	syncLog.Info("starting %s sync of %s (%s)", strategy.Name, calendarID, cal.RemoteID)

	err = e.run(ctx, cal, strategy, result, status)
	e.finish(ctx, result, err)
	if err != nil {
		e.setPhase(status, domain.PhaseFailed)
		syncLog.Warn("sync of %s failed: %v", calendarID, err)
		return nil, err
	}

	syncLog.Info("sync of %s complete: %d created, %d updated, %d deleted, %d unchanged, %d failed",
		calendarID, result.Created, result.Updated, result.Deleted, result.Unchanged, result.Failed)
	return result, nil
}

// run performs the fetch, reconcile and commit steps.
func (e *SyncEngine) run(
	ctx context.Context,
	cal *domain.Calendar,
	strategy domain.SyncStrategy,
	result *domain.SyncResult,
	status *driving.SyncStatus,
) error {
	client, err := e.factory.Create(ctx)
	if err != nil {
		return fmt.Errorf("create calendar client: %w", err)
	}
	defer client.Close()

	// 1. Fetch
	data, fellBack, err := e.fetch(ctx, client, cal, strategy)
	if err != nil {
		return fmt.Errorf("fetch calendar %s: %w", cal.ID, err)
	}
	result.Incremental = data.Incremental
	result.FellBackToFull = fellBack

	// 2. Reconcile
	e.setPhase(status, domain.PhaseReconciling)
	reporter := NewErrorReporter(cal.ID, data.Incremental, e.sink)
	e.applyUpdates(ctx, cal, data.NewAndUpdated, reporter, result, status)
	e.applyDeletions(ctx, cal, data.Deleted, reporter, result, status)
	if !data.Incremental && data.Complete {
		e.pruneAbsent(ctx, cal, data, reporter, result, status)
	}

	// A cancelled run must not move the cursor past events it did not apply.
	if err := ctx.Err(); err != nil {
		reporter.Flush()
		return err
	}

	// 3. Commit
	e.setPhase(status, domain.PhaseCommitting)
	if err := e.commit(ctx, cal, data, result); err != nil {
		reporter.Flush()
		return err
	}

	// 4. Report
	reporter.Flush()
	return nil
}

// fetch fetches with the strategy's mode, falling back to a full fetch when
// the strategy allows it and the cursor is rejected as too old.
func (e *SyncEngine) fetch(
	ctx context.Context,
	client driven.CalendarClient,
	cal *domain.Calendar,
	strategy domain.SyncStrategy,
) (*domain.SyncData, bool, error) {
	data, err := e.source.Fetch(ctx, client, cal, strategy.Incremental)
	if err == nil {
		return data, false, nil
	}
	if !strategy.FallbackToFull || !errors.Is(err, domain.ErrIncrementalQueryUnavailable) {
		return nil, false, err
	}

	syncLog.Info("cursor of %s rejected, falling back to full sync", cal.ID)
	data, err = e.source.Fetch(ctx, client, cal, false)
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}

// applyUpdates creates or updates a local event for every remote event.
// A failing event is recorded and skipped.
func (e *SyncEngine) applyUpdates(
	ctx context.Context,
	cal *domain.Calendar,
	remote []domain.RemoteEvent,
	reporter *ErrorReporter,
	result *domain.SyncResult,
	status *driving.SyncStatus,
) {
	for _, rev := range remote {
		if ctx.Err() != nil {
			return
		}

		created, changed, err := e.applyEvent(ctx, cal, rev)
		if err != nil {
			syncLog.Debug("event %s of %s failed: %v", rev.ID, cal.ID, err)
			reporter.Record(rev, err)
			result.Failed++
			e.countError(status)
			continue
		}

		switch {
		case created:
			result.Created++
		case changed:
			result.Updated++
		default:
			result.Unchanged++
		}
		e.countProcessed(status)
	}
}

// applyEvent finds or builds the local event and stores the remote values.
// Unchanged events are not written.
func (e *SyncEngine) applyEvent(ctx context.Context, cal *domain.Calendar, rev domain.RemoteEvent) (created, changed bool, err error) {
	local, err := e.events.Find(ctx, cal.ID, rev.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		local = &domain.LocalEvent{
			CalendarID: cal.ID,
			EventID:    rev.ID,
			InstanceID: rev.InstanceID,
		}
	case err != nil:
		return false, false, fmt.Errorf("find event: %w", err)
	}

	created = local.IsNew()
	if !created && attributesMatch(local, rev) {
		return false, false, nil
	}

	// Conflict checks stay valid only while the times are unchanged.
	local.CheckedForConflicts = !created && local.CheckedForConflicts && local.TimesMatch(rev)
	local.Start = rev.Start
	local.End = rev.End
	local.Title = rev.Title
	local.Details = rev.Details
	local.URL = rev.URL
	local.RemoteUpdatedAt = rev.UpdatedAt

	if err := local.Validate(); err != nil {
		return false, false, err
	}
	if err := e.events.Upsert(ctx, local); err != nil {
		return false, false, fmt.Errorf("save event: %w", err)
	}
	return created, true, nil
}

func attributesMatch(local *domain.LocalEvent, rev domain.RemoteEvent) bool {
	return local.TimesMatch(rev) &&
		local.Title == rev.Title &&
		local.Details == rev.Details &&
		local.URL == rev.URL &&
		local.RemoteUpdatedAt.Equal(rev.UpdatedAt)
}

// applyDeletions removes the local copies of cancelled events.
// Events without a local copy are already gone.
func (e *SyncEngine) applyDeletions(
	ctx context.Context,
	cal *domain.Calendar,
	remote []domain.RemoteEvent,
	reporter *ErrorReporter,
	result *domain.SyncResult,
	status *driving.SyncStatus,
) {
	for _, rev := range remote {
		if ctx.Err() != nil {
			return
		}

		local, err := e.events.Find(ctx, cal.ID, rev.ID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err == nil {
			err = e.events.Delete(ctx, local.ID)
		}
		if err != nil {
			reporter.Record(rev, fmt.Errorf("delete event: %w", err))
			result.Failed++
			e.countError(status)
			continue
		}

		result.Deleted++
		e.countProcessed(status)
	}
}

// pruneAbsent deletes local events inside the fetch window that a complete
// full fetch did not return, including cancellations the remote service no
// longer reports.
func (e *SyncEngine) pruneAbsent(
	ctx context.Context,
	cal *domain.Calendar,
	data *domain.SyncData,
	reporter *ErrorReporter,
	result *domain.SyncResult,
	status *driving.SyncStatus,
) {
	if ctx.Err() != nil {
		return
	}
	local, err := e.events.ListByCalendar(ctx, cal.ID)
	if err != nil {
		e.notify(fmt.Errorf("calendar %s: list events for pruning: %w", cal.ID, err))
		return
	}

	seen := make(map[string]struct{}, len(data.NewAndUpdated)+len(data.Deleted))
	for _, rev := range data.NewAndUpdated {
		seen[rev.ID] = struct{}{}
	}
	for _, rev := range data.Deleted {
		seen[rev.ID] = struct{}{}
	}

	for i := range local {
		if ctx.Err() != nil {
			return
		}
		ev := &local[i]
		if _, ok := seen[ev.EventID]; ok || !data.Covers(ev) {
			continue
		}
		if err := e.events.Delete(ctx, ev.ID); err != nil {
			reporter.Record(domain.RemoteEvent{ID: ev.EventID, Title: ev.Title}, fmt.Errorf("delete absent event: %w", err))
			result.Failed++
			e.countError(status)
			continue
		}
		syncLog.Debug("removed %s of %s: no longer returned by the remote calendar", ev.EventID, cal.ID)
		result.Deleted++
		e.countProcessed(status)
	}
}

// commit advances the cursor to the fetch's server timestamp.
func (e *SyncEngine) commit(ctx context.Context, cal *domain.Calendar, data *domain.SyncData, result *domain.SyncResult) error {
	if data.Timestamp.IsZero() {
		e.notify(fmt.Errorf("calendar %s: %w; cursor not advanced", cal.ID, domain.ErrMissingServerTimestamp))
		if cal.LastSyncedAt != nil {
			result.Cursor = *cal.LastSyncedAt
		}
		return nil
	}

	updated, err := e.calendars.AdvanceCursor(ctx, cal.ID, data.Timestamp, data.Incremental)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	if updated.LastSyncedAt != nil {
		result.Cursor = *updated.LastSyncedAt
	}
	return nil
}

// finish records the run in the history and metrics.
func (e *SyncEngine) finish(ctx context.Context, result *domain.SyncResult, runErr error) {
	result.EndedAt = e.now()

	if e.runs != nil {
		run := domain.SyncRun{
			ID:          result.RunID,
			CalendarID:  result.CalendarID,
			Strategy:    result.Strategy,
			Incremental: result.Incremental,
			StartedAt:   result.StartedAt,
			EndedAt:     result.EndedAt,
			Success:     runErr == nil,
			Created:     result.Created,
			Updated:     result.Updated,
			Deleted:     result.Deleted,
			Failed:      result.Failed,
		}
		if runErr != nil {
			run.Error = runErr.Error()
		}
		// History must be written even when the run was cancelled.
		if err := e.runs.Record(context.WithoutCancel(ctx), run); err != nil {
			syncLog.Warn("record sync run: %v", err)
		}
	}

	if e.metrics != nil {
		var observed *domain.SyncResult
		if runErr == nil {
			observed = result
		}
		e.metrics.ObserveSync(result.CalendarID, result.Strategy, observed, runErr, result.EndedAt.Sub(result.StartedAt))
	}
}

// SyncAll syncs every linked calendar. A failing calendar does not stop the
// others; the failures are joined.
func (e *SyncEngine) SyncAll(ctx context.Context, strategy domain.SyncStrategy) ([]domain.SyncResult, error) {
	calendars, err := e.calendars.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	var (
		results []domain.SyncResult
		errs    []error
	)
	for _, cal := range calendars {
		if !cal.Syncable() {
			syncLog.Debug("skipping %s: no remote calendar", cal.ID)
			continue
		}
		result, err := e.Sync(ctx, cal.ID, strategy)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", cal.ID, err))
			continue
		}
		results = append(results, *result)
	}

	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// Status returns sync status for a calendar.
func (e *SyncEngine) Status(_ context.Context, calendarID string) (*driving.SyncStatus, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if status, ok := e.activeSyncs[calendarID]; ok {
		// Return a copy to avoid race conditions
		copied := *status
		return &copied, nil
	}

	return &driving.SyncStatus{
		CalendarID: calendarID,
		Phase:      domain.PhaseIdle,
	}, nil
}

// lock acquires the calendar's run lock, waiting for a running sync of the
// same calendar to finish.
func (e *SyncEngine) lock(ctx context.Context, calendarID string) (func(), error) {
	e.locksMu.Lock()
	ch, ok := e.locks[calendarID]
	if !ok {
		ch = make(chan struct{}, 1)
		e.locks[calendarID] = ch
	}
	e.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *SyncEngine) notify(err error) {
	syncLog.Warn("%v", err)
	if e.sink != nil {
		e.sink.Notify(err)
	}
}

// setStatus sets the sync status for a calendar.
func (e *SyncEngine) setStatus(calendarID string, status *driving.SyncStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeSyncs[calendarID] = status
}

// clearStatus removes the sync status for a calendar.
func (e *SyncEngine) clearStatus(calendarID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.activeSyncs, calendarID)
}

func (e *SyncEngine) setPhase(status *driving.SyncStatus, phase domain.SyncPhase) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status.Phase = phase
	status.Running = phase != domain.PhaseFailed
}

func (e *SyncEngine) countProcessed(status *driving.SyncStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status.EventsProcessed++
}

func (e *SyncEngine) countError(status *driving.SyncStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	status.ErrorCount++
}
