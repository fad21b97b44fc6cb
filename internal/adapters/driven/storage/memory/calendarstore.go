package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure CalendarStore implements the interface.
var _ driven.CalendarStore = (*CalendarStore)(nil)

// CalendarStore is an in-memory implementation of driven.CalendarStore.
type CalendarStore struct {
	mu        sync.RWMutex
	calendars map[string]domain.Calendar
}

// NewCalendarStore creates a new in-memory calendar store.
func NewCalendarStore() *CalendarStore {
	return &CalendarStore{
		calendars: make(map[string]domain.Calendar),
	}
}

// Save stores or updates a calendar.
func (s *CalendarStore) Save(_ context.Context, cal domain.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[cal.ID] = cal
	return nil
}

// Get retrieves a calendar by ID.
func (s *CalendarStore) Get(_ context.Context, id string) (*domain.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cal, ok := s.calendars[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cal, nil
}

// GetByRemoteID retrieves a calendar by its remote ID.
func (s *CalendarStore) GetByRemoteID(_ context.Context, remoteID string) (*domain.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cal := range s.calendars {
		if cal.RemoteID == remoteID {
			return &cal, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all calendars ordered by name.
func (s *CalendarStore) List(_ context.Context) ([]domain.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Calendar, 0, len(s.calendars))
	for _, cal := range s.calendars {
		result = append(result, cal)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes a calendar.
func (s *CalendarStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.calendars, id)
	return nil
}

// AdvanceCursor moves a calendar's cursor forward.
func (s *CalendarStore) AdvanceCursor(_ context.Context, id string, ts time.Time, incremental bool) (*domain.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calendars[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if cal.AdvanceCursor(ts, incremental) {
		cal.UpdatedAt = time.Now()
		s.calendars[id] = cal
	}
	return &cal, nil
}
