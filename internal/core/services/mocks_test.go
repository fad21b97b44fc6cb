package services

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

var baseTime = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

// mockCalendarClient implements driven.CalendarClient for testing.
type mockCalendarClient struct {
	mu stdsync.Mutex

	listFn  func(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.FetchResult, error)
	queries []domain.EventQuery
	lastTS  time.Time

	watchResult *domain.WatchResult
	watchErr    error

	stopErr error
	stopped []string

	exists    bool
	existsErr error

	createdID string
	createErr error
	renamed   map[string]string
	updateErr error
	deleted   []string
	deleteErr error

	closed int
}

func newMockCalendarClient() *mockCalendarClient {
	return &mockCalendarClient{renamed: make(map[string]string), exists: true}
}

func (m *mockCalendarClient) ListEvents(ctx context.Context, calendarID string, query domain.EventQuery) (*domain.FetchResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	fn := m.listFn
	m.mu.Unlock()

	if fn == nil {
		return &domain.FetchResult{Timestamp: baseTime}, nil
	}
	return fn(ctx, calendarID, query)
}

func (m *mockCalendarClient) LastResultTimestamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTS
}

func (m *mockCalendarClient) WatchEvents(_ context.Context, calendarID string) (*domain.WatchResult, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	if m.watchResult != nil {
		return m.watchResult, nil
	}
	return &domain.WatchResult{
		Status: domain.WatchCreated,
		Channel: &domain.NotificationChannel{
			ChannelID:  "chan-" + calendarID,
			ResourceID: "res-" + calendarID,
			Expiration: baseTime.Add(7 * 24 * time.Hour),
		},
	}, nil
}

func (m *mockCalendarClient) StopChannel(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = append(m.stopped, channelID)
	return nil
}

func (m *mockCalendarClient) CalendarExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockCalendarClient) CreateCalendar(_ context.Context, _ string) (string, error) {
	return m.createdID, m.createErr
}

func (m *mockCalendarClient) UpdateCalendar(_ context.Context, calendarID, title string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.renamed[calendarID] = title
	return nil
}

func (m *mockCalendarClient) DeleteCalendar(_ context.Context, calendarID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, calendarID)
	return nil
}

func (m *mockCalendarClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockCalendarClient) listedQueries() []domain.EventQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EventQuery(nil), m.queries...)
}

// mockClientFactory hands out the same mock client.
type mockClientFactory struct {
	client *mockCalendarClient
	err    error
}

func (f *mockClientFactory) Create(_ context.Context) (driven.CalendarClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// recordingSink implements driven.DiagnosticSink.
type recordingSink struct {
	mu   stdsync.Mutex
	errs []error
}

func (s *recordingSink) Notify(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSink) notified() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func (s *recordingSink) has(target error) bool {
	for _, err := range s.notified() {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// recordingMetrics implements driven.SyncMetrics.
type recordingMetrics struct {
	mu       stdsync.Mutex
	syncs    []error
	webhooks []string
}

func (m *recordingMetrics) ObserveSync(_, _ string, _ *domain.SyncResult, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncs = append(m.syncs, err)
}

func (m *recordingMetrics) ObserveWebhook(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, outcome)
}

func (m *recordingMetrics) ObserveRetry(string) {}

// timedEvent builds a confirmed one-hour remote event starting offset after baseTime.
func timedEvent(id string, offset time.Duration) domain.RemoteEvent {
	start := baseTime.Add(offset)
	end := start.Add(time.Hour)
	return domain.RemoteEvent{
		ID:         id,
		ICalUID:    id + "@google.com",
		InstanceID: domain.InstanceIDFor(id+"@google.com", start, end),
		Start:      start,
		End:        end,
		Title:      "Event " + id,
		UpdatedAt:  baseTime.Add(-time.Hour),
		Status:     domain.EventStatusConfirmed,
	}
}

func cancelledEvent(id string) domain.RemoteEvent {
	return domain.RemoteEvent{ID: id, Status: domain.EventStatusCancelled}
}

// fixedResults returns a list function that serves events with a server
// timestamp one minute later on every call.
func fixedResults(events ...domain.RemoteEvent) func(context.Context, string, domain.EventQuery) (*domain.FetchResult, error) {
	var (
		mu    stdsync.Mutex
		calls int
	)
	return func(context.Context, string, domain.EventQuery) (*domain.FetchResult, error) {
		mu.Lock()
		calls++
		ts := baseTime.Add(time.Duration(calls) * time.Minute)
		mu.Unlock()
		return &domain.FetchResult{Events: events, Timestamp: ts, Pages: 1}, nil
	}
}
