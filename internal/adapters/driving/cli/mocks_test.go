package cli

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/calsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/core/services"
)

var testTime = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

// mockCalendarService implements driving.CalendarService for testing.
type mockCalendarService struct {
	calendars []domain.Calendar
	events    []domain.LocalEvent
	runs      []domain.SyncRun
	err       error

	addedRemoteID string
	addedName     string
	renamed       [2]string
	removed       string
	removedRemote bool
	historyLimit  int
}

func (m *mockCalendarService) Add(_ context.Context, remoteID, name string) (*domain.Calendar, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.addedRemoteID, m.addedName = remoteID, name
	if name == "" {
		name = remoteID
	}
	return &domain.Calendar{ID: "cal-new", RemoteID: remoteID, Name: name}, nil
}

func (m *mockCalendarService) Create(_ context.Context, title string) (*domain.Calendar, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Calendar{ID: "cal-new", RemoteID: "abc@group.calendar.google.com", Name: title}, nil
}

func (m *mockCalendarService) Rename(_ context.Context, id, name string) error {
	m.renamed = [2]string{id, name}
	return m.err
}

func (m *mockCalendarService) Remove(_ context.Context, id string, deleteRemote bool) error {
	m.removed, m.removedRemote = id, deleteRemote
	return m.err
}

func (m *mockCalendarService) Get(_ context.Context, id string) (*domain.Calendar, error) {
	for i := range m.calendars {
		if m.calendars[i].ID == id {
			return &m.calendars[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCalendarService) List(_ context.Context) ([]domain.Calendar, error) {
	return m.calendars, m.err
}

func (m *mockCalendarService) Events(_ context.Context, _ string) ([]domain.LocalEvent, error) {
	return m.events, m.err
}

func (m *mockCalendarService) History(_ context.Context, _ string, limit int) ([]domain.SyncRun, error) {
	m.historyLimit = limit
	return m.runs, m.err
}

// mockSyncEngine implements driving.SyncEngine for testing.
type mockSyncEngine struct {
	mu         sync.Mutex
	result     *domain.SyncResult
	results    []domain.SyncResult
	err        error
	status     *driving.SyncStatus
	strategies []domain.SyncStrategy
	synced     []string
}

func (m *mockSyncEngine) Sync(_ context.Context, calendarID string, strategy domain.SyncStrategy) (*domain.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, calendarID)
	m.strategies = append(m.strategies, strategy)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SyncResult{CalendarID: calendarID, Strategy: strategy.Name}, nil
}

func (m *mockSyncEngine) SyncAll(_ context.Context, strategy domain.SyncStrategy) ([]domain.SyncResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies = append(m.strategies, strategy)
	return m.results, m.err
}

func (m *mockSyncEngine) Status(_ context.Context, calendarID string) (*driving.SyncStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.SyncStatus{CalendarID: calendarID, Phase: domain.PhaseIdle}, nil
}

func (m *mockSyncEngine) lastStrategy() domain.SyncStrategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.strategies) == 0 {
		return domain.SyncStrategy{}
	}
	return m.strategies[len(m.strategies)-1]
}

// mockChannelService implements driving.ChannelService for testing.
type mockChannelService struct {
	result    *domain.WatchResult
	channels  []domain.NotificationChannel
	err       error
	unwatched string
}

func (m *mockChannelService) Watch(_ context.Context, _ string) (*domain.WatchResult, error) {
	return m.result, m.err
}

func (m *mockChannelService) Unwatch(_ context.Context, channelID string) error {
	m.unwatched = channelID
	return m.err
}

func (m *mockChannelService) List(_ context.Context, _ string) ([]domain.NotificationChannel, error) {
	return m.channels, m.err
}

// mockWebhookHandler implements driving.WebhookHandler for testing.
type mockWebhookHandler struct {
	mu    sync.Mutex
	calls []string
}

func (m *mockWebhookHandler) Handle(_ context.Context, channelID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, channelID)
	return nil
}

// fakeServer captures the router instead of listening.
type fakeServer struct {
	addr    string
	handler http.Handler
	err     error
}

func (f *fakeServer) Run(_ context.Context) error {
	return f.err
}

// blockingTask runs until its context ends.
type blockingTask struct {
	started chan struct{}
	stopped chan struct{}
}

func newBlockingTask() *blockingTask {
	return &blockingTask{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (b *blockingTask) Run(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	close(b.stopped)
	return ctx.Err()
}

type testServices struct {
	calendars *mockCalendarService
	sync      *mockSyncEngine
	channels  *mockChannelService
	webhooks  *mockWebhookHandler
	settings  *services.SettingsService
	config    *memory.ConfigStore
}

// setupCLITest installs mock services and returns a cleanup func that
// restores the previous services and flag values.
func setupCLITest() (*testServices, func()) {
	config := memory.NewConfigStore()
	ts := &testServices{
		calendars: &mockCalendarService{},
		sync:      &mockSyncEngine{},
		channels:  &mockChannelService{},
		webhooks:  &mockWebhookHandler{},
		settings:  services.NewSettingsService(config),
		config:    config,
	}

	oldCal, oldSync, oldChan := calendarService, syncEngine, channelService
	oldHook, oldSettings := webhookHandler, settingsService
	oldMetrics, oldTasks := metricsExporter, backgroundTasks
	oldInterval, oldServer := progressInterval, newServer
	oldBootstrap := bootstrap

	Configure(Services{
		Calendars: ts.calendars,
		Sync:      ts.sync,
		Channels:  ts.channels,
		Webhooks:  ts.webhooks,
		Settings:  ts.settings,
	})
	progressInterval = 10 * time.Millisecond

	return ts, func() {
		calendarService, syncEngine, channelService = oldCal, oldSync, oldChan
		webhookHandler, settingsService = oldHook, oldSettings
		metricsExporter, backgroundTasks = oldMetrics, oldTasks
		progressInterval, newServer = oldInterval, oldServer
		bootstrap = oldBootstrap
		resetFlags()
	}
}

// resetFlags restores flag variables; cobra keeps them between executions.
func resetFlags() {
	verbose = false
	useMemory = false
	configDir = ""
	calendarName = ""
	deleteRemote = false
	historyLimit = 10
	syncFull, syncIncremental, syncStrategy = false, false, ""
	serveAddr = ""
	versionShort = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
