package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure EventStore implements the interface.
var _ driven.EventStore = (*EventStore)(nil)

type eventKey struct {
	calendarID string
	eventID    string
}

// EventStore is an in-memory implementation of driven.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events map[eventKey]domain.LocalEvent
	byID   map[string]eventKey
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events: make(map[eventKey]domain.LocalEvent),
		byID:   make(map[string]eventKey),
	}
}

// Find returns the event for a remote event of a calendar.
func (s *EventStore) Find(_ context.Context, calendarID, eventID string) (*domain.LocalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventKey{calendarID, eventID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &event, nil
}

// Upsert inserts or updates an event keyed by (CalendarID, EventID).
// The existing local ID and creation time are kept on update.
func (s *EventStore) Upsert(_ context.Context, event *domain.LocalEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{event.CalendarID, event.EventID}
	now := time.Now()
	if existing, ok := s.events[key]; ok {
		event.ID = existing.ID
		event.CreatedAt = existing.CreatedAt
	} else {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	s.events[key] = *event
	s.byID[event.ID] = key
	return nil
}

// Delete removes an event by local ID. Missing events are ignored.
func (s *EventStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.byID[id]; ok {
		delete(s.events, key)
		delete(s.byID, id)
	}
	return nil
}

// ListByCalendar returns a calendar's events ordered by start time.
func (s *EventStore) ListByCalendar(_ context.Context, calendarID string) ([]domain.LocalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.LocalEvent
	for key, event := range s.events {
		if key.calendarID == calendarID {
			result = append(result, event)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.Before(result[j].Start)
		}
		return result[i].EventID < result[j].EventID
	})
	return result, nil
}

// DeleteByCalendar removes all events of a calendar.
func (s *EventStore) DeleteByCalendar(_ context.Context, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, event := range s.events {
		if key.calendarID == calendarID {
			delete(s.events, key)
			delete(s.byID, event.ID)
		}
	}
	return nil
}

// Count returns the number of stored events.
func (s *EventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
