package calendar

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

// ToRemoteEvent converts a Google Calendar event to a domain.RemoteEvent.
// It returns false for events that are not synced: nil entries, all-day
// events (date-only start or end) and events with unparseable times.
//
// Cancelled instances are sometimes returned with only an id and status;
// those are kept without times so the deletion can still be applied.
func ToRemoteEvent(event *calendar.Event) (domain.RemoteEvent, bool) {
	if isBareCancellation(event) {
		return domain.RemoteEvent{
			ID:      event.Id,
			ICalUID: event.ICalUID,
			Status:  domain.EventStatusCancelled,
		}, true
	}
	if !IsTimed(event) {
		return domain.RemoteEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return domain.RemoteEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, event.End.DateTime)
	if err != nil {
		return domain.RemoteEvent{}, false
	}

	remote := domain.RemoteEvent{
		ID:         event.Id,
		ICalUID:    event.ICalUID,
		InstanceID: domain.InstanceIDFor(event.ICalUID, start, end),
		Start:      start,
		End:        end,
		Title:      event.Summary,
		Details:    event.Description,
		URL:        event.HtmlLink,
		Status:     event.Status,
	}
	if event.Updated != "" {
		if updated, err := time.Parse(time.RFC3339, event.Updated); err == nil {
			remote.UpdatedAt = updated
		}
	}
	return remote, true
}

// IsTimed returns true if the event has a time-of-day start and end.
func IsTimed(event *calendar.Event) bool {
	return event != nil &&
		event.Start != nil && event.Start.DateTime != "" &&
		event.End != nil && event.End.DateTime != ""
}

func isBareCancellation(event *calendar.Event) bool {
	return event != nil && event.Id != "" &&
		event.Status == domain.EventStatusCancelled &&
		event.Start == nil && event.End == nil
}

// ToRemoteEvents converts a page of events, keeping remote order and
// dropping events ToRemoteEvent rejects.
func ToRemoteEvents(items []*calendar.Event) []domain.RemoteEvent {
	events := make([]domain.RemoteEvent, 0, len(items))
	for _, item := range items {
		if ev, ok := ToRemoteEvent(item); ok {
			events = append(events, ev)
		}
	}
	return events
}
