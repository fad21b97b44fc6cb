package domain

import (
	"fmt"
	"strings"
	"time"
)

// Remote event statuses as reported by Google Calendar.
const (
	EventStatusConfirmed = "confirmed"
	EventStatusTentative = "tentative"
	EventStatusCancelled = "cancelled"
)

// RemoteEvent is a normalised event fetched from the remote calendar.
// It only lives for the duration of a sync run.
type RemoteEvent struct {
	// ID is the remote event identifier.
	ID string

	// ICalUID is the iCalendar UID shared by all instances of a series.
	ICalUID string

	// InstanceID identifies a single occurrence (see InstanceIDFor).
	InstanceID string

	Start time.Time
	End   time.Time

	Title   string
	Details string
	URL     string

	// UpdatedAt is the remote last-modified time.
	UpdatedAt time.Time

	// Status is confirmed, tentative or cancelled.
	Status string
}

// Cancelled returns true if the remote event was deleted.
func (e *RemoteEvent) Cancelled() bool {
	return e.Status == EventStatusCancelled
}

// InstanceIDFor derives a stable occurrence identifier from the iCal UID and
// the occurrence's start and end (Unix seconds).
func InstanceIDFor(icalUID string, start, end time.Time) string {
	return fmt.Sprintf("%s-%d-%d", icalUID, start.Unix(), end.Unix())
}

// LocalEvent is the persisted copy of a remote event.
// (CalendarID, EventID) is unique.
type LocalEvent struct {
	// ID is the local identifier.
	ID string

	// CalendarID references the owning Calendar.
	CalendarID string

	// EventID is the remote event identifier.
	EventID string

	// InstanceID is the occurrence identifier assigned on creation.
	InstanceID string

	Start time.Time
	End   time.Time

	Title   string
	Details string
	URL     string

	// RemoteUpdatedAt mirrors RemoteEvent.UpdatedAt.
	RemoteUpdatedAt time.Time

	// CheckedForConflicts is cleared whenever the event's times change.
	CheckedForConflicts bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsNew returns true if the event has not been persisted yet.
func (e *LocalEvent) IsNew() bool {
	return e.ID == ""
}

// TimesMatch returns true if the remote event has the same start and end.
func (e *LocalEvent) TimesMatch(remote RemoteEvent) bool {
	return e.Start.Equal(remote.Start) && e.End.Equal(remote.End)
}

// Validate checks the event can be persisted.
func (e *LocalEvent) Validate() error {
	var problems []string
	if e.CalendarID == "" {
		problems = append(problems, "calendar id is required")
	}
	if e.EventID == "" {
		problems = append(problems, "event id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		problems = append(problems, "start and end are required")
	} else if e.End.Before(e.Start) {
		problems = append(problems, "end is before start")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, ", "))
	}
	return nil
}
