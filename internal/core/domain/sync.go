package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventQuery bounds a remote events query. Zero values are unset.
type EventQuery struct {
	// RangeStart is the lower bound on event end time (timeMin).
	RangeStart time.Time

	// RangeEnd is the upper bound on event start time (timeMax).
	RangeEnd time.Time

	// UpdatedAfter limits results to events modified after it (updatedMin).
	UpdatedAfter time.Time
}

// IsIncremental returns true if the query only asks for recent changes.
func (q EventQuery) IsIncremental() bool {
	return !q.UpdatedAfter.IsZero()
}

// FetchResult is the outcome of one remote events query.
type FetchResult struct {
	// Events are the translated timed events, in remote order.
	Events []RemoteEvent

	// Timestamp is the server-reported time of the first response.
	Timestamp time.Time

	// Pages is the number of pages received.
	Pages int

	// Complete is false when further pages were left unfetched.
	Complete bool
}

// SyncData is the classified result of a fetch.
type SyncData struct {
	NewAndUpdated []RemoteEvent
	Deleted       []RemoteEvent

	// Timestamp is the fetch completion time to persist as the new cursor.
	Timestamp time.Time

	// Incremental records whether the fetch used the cursor.
	Incremental bool

	// Complete is true when every page of the query was fetched.
	Complete bool

	// RangeStart and RangeEnd are the query window; zero is unbounded.
	RangeStart time.Time
	RangeEnd   time.Time
}

// Covers reports whether a full fetch with this window would have returned
// the event: it ends after RangeStart and starts before RangeEnd.
func (d *SyncData) Covers(ev *LocalEvent) bool {
	if !d.RangeStart.IsZero() && !ev.End.After(d.RangeStart) {
		return false
	}
	if !d.RangeEnd.IsZero() && !ev.Start.Before(d.RangeEnd) {
		return false
	}
	return true
}

// SyncStrategy is the policy for a sync run.
type SyncStrategy struct {
	// Name identifies the strategy in logs and history.
	Name string

	// Incremental requests a cursor-based fetch when the calendar allows it.
	Incremental bool

	// FallbackToFull retries with a full fetch when the remote service
	// rejects the cursor as too old.
	FallbackToFull bool
}

// Built-in strategies.
var (
	// IncrementalSync fetches changes since the cursor and fails on a stale cursor.
	IncrementalSync = SyncStrategy{Name: "incremental", Incremental: true}

	// FullResync always fetches the whole configured range.
	FullResync = SyncStrategy{Name: "full"}

	// SmartSync is incremental with a fallback to a full fetch on a stale cursor.
	SmartSync = SyncStrategy{Name: "smart", Incremental: true, FallbackToFull: true}
)

// StrategyByName returns the built-in strategy with the given name.
func StrategyByName(name string) (SyncStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SmartSync.Name:
		return SmartSync, nil
	case IncrementalSync.Name:
		return IncrementalSync, nil
	case FullResync.Name:
		return FullResync, nil
	default:
		return SyncStrategy{}, fmt.Errorf("%w: unknown sync strategy %q", ErrInvalidInput, name)
	}
}

// SyncPhase is the state of a sync run.
type SyncPhase string

// Sync run phases. A run moves idle -> fetching -> reconciling -> committing
// -> idle, or idle -> fetching -> failed.
const (
	PhaseIdle        SyncPhase = "idle"
	PhaseFetching    SyncPhase = "fetching"
	PhaseReconciling SyncPhase = "reconciling"
	PhaseCommitting  SyncPhase = "committing"
	PhaseFailed      SyncPhase = "failed"
)

// SyncResult summarises a completed sync run.
type SyncResult struct {
	RunID      string
	CalendarID string
	Strategy   string

	// Incremental is true when the applied fetch used the cursor.
	Incremental bool

	// FellBackToFull is true when an incremental fetch was rejected and
	// replaced by a full fetch.
	FellBackToFull bool

	Created   int
	Updated   int
	Deleted   int
	Failed    int
	Unchanged int

	// Cursor is the cursor value after the run.
	Cursor time.Time

	StartedAt time.Time
	EndedAt   time.Time
}

// Processed returns the number of events applied without error.
func (r *SyncResult) Processed() int {
	return r.Created + r.Updated + r.Deleted
}

// SyncRun is a persisted record of one sync attempt.
type SyncRun struct {
	ID          string
	CalendarID  string
	Strategy    string
	Incremental bool
	StartedAt   time.Time
	EndedAt     time.Time
	Success     bool
	Error       string
	Created     int
	Updated     int
	Deleted     int
	Failed      int
}

// EventFailure records one event that could not be applied locally.
type EventFailure struct {
	EventID    string
	CalendarID string
	Title      string
	Err        error
}

// SyncFailureBatch aggregates the event failures of one run into a single
// diagnostic. It implements error so it can be sent to a diagnostic sink.
type SyncFailureBatch struct {
	CalendarID  string
	Incremental bool
	Failures    []EventFailure
}

// Error implements the error interface.
func (b *SyncFailureBatch) Error() string {
	mode := "full"
	if b.Incremental {
		mode = "incremental"
	}

	parts := make([]string, 0, len(b.Failures))
	for _, f := range b.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.EventID, f.Err))
	}
	return fmt.Sprintf("%s sync of calendar %s: %d event(s) failed: %s",
		mode, b.CalendarID, len(b.Failures), strings.Join(parts, "; "))
}
