package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// SyncDataSource fetches a calendar's remote events and classifies them
// into new-or-updated and deleted buckets.
type SyncDataSource struct {
	mu           sync.RWMutex
	pastWindow   time.Duration
	futureWindow time.Duration
	now          func() time.Time
}

// NewSyncDataSource creates a data source bounded by the configured windows.
func NewSyncDataSource(cfg domain.SyncSettings) *SyncDataSource {
	return &SyncDataSource{
		pastWindow:   cfg.PastWindow,
		futureWindow: cfg.FutureWindow,
		now:          time.Now,
	}
}

// Update applies new query windows to later fetches.
func (s *SyncDataSource) Update(cfg domain.SyncSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pastWindow = cfg.PastWindow
	s.futureWindow = cfg.FutureWindow
}

// Query builds the events query for a calendar. The cursor is only used
// when an incremental fetch is requested, the calendar allows it and a
// cursor exists.
func (s *SyncDataSource) Query(cal *domain.Calendar, incremental bool) domain.EventQuery {
	s.mu.RLock()
	past, future := s.pastWindow, s.futureWindow
	s.mu.RUnlock()

	var q domain.EventQuery
	now := s.now()
	if past > 0 {
		q.RangeStart = now.Add(-past)
	}
	if future > 0 {
		q.RangeEnd = now.Add(future)
	}
	if incremental && cal.Incremental && !cal.NeverSynced() {
		q.UpdatedAfter = *cal.LastSyncedAt
	}
	return q
}

// Fetch lists the calendar's events and classifies them by status.
// The returned timestamp is the server time of the fetch, to be stored
// as the next cursor.
func (s *SyncDataSource) Fetch(ctx context.Context, client driven.CalendarClient, cal *domain.Calendar, incremental bool) (*domain.SyncData, error) {
	query := s.Query(cal, incremental)

	result, err := client.ListEvents(ctx, cal.RemoteID, query)
	if err != nil {
		return nil, err
	}

	data := &domain.SyncData{
		Timestamp:   result.Timestamp,
		Incremental: query.IsIncremental(),
		Complete:    result.Complete,
		RangeStart:  query.RangeStart,
		RangeEnd:    query.RangeEnd,
	}
	if data.Timestamp.IsZero() {
		data.Timestamp = client.LastResultTimestamp()
	}
	for _, ev := range result.Events {
		if ev.Cancelled() {
			data.Deleted = append(data.Deleted, ev)
		} else {
			data.NewAndUpdated = append(data.NewAndUpdated, ev)
		}
	}
	return data, nil
}
