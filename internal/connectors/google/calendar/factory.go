package calendar

import (
	"context"
	"sync"

	"google.golang.org/api/option"

	"github.com/custodia-labs/calsync/internal/connectors/google"
	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.CalendarClientFactory = (*Factory)(nil)

// Factory creates one Client per sync run or request. All clients share a
// rate limiter so concurrent runs stay within the same request budget.
type Factory struct {
	mu       sync.RWMutex
	settings domain.Settings
	opts     []option.ClientOption
	sink     driven.DiagnosticSink
	metrics  driven.SyncMetrics
	limiter  *google.RateLimiter
}

// NewFactory creates a client factory. opts are passed to every calendar
// service, e.g. option.WithHTTPClient in tests.
func NewFactory(settings domain.Settings, sink driven.DiagnosticSink, metrics driven.SyncMetrics, opts ...option.ClientOption) *Factory {
	return &Factory{
		settings: settings,
		opts:     opts,
		sink:     sink,
		metrics:  metrics,
		limiter:  google.NewRateLimiter(settings.Sync.RequestsPerSecond, google.DefaultBurst),
	}
}

// Create returns a new client with its own calendar service.
func (f *Factory) Create(ctx context.Context) (driven.CalendarClient, error) {
	f.mu.RLock()
	settings := f.settings
	f.mu.RUnlock()

	svc, err := google.NewCalendarService(ctx, settings.Google, f.opts...)
	if err != nil {
		return nil, err
	}

	clientOpts := []Option{WithRateLimiter(f.limiter)}
	if f.sink != nil {
		clientOpts = append(clientOpts, WithDiagnosticSink(f.sink))
	}
	if f.metrics != nil {
		clientOpts = append(clientOpts, WithMetrics(f.metrics))
	}
	return NewClient(svc, ConfigFromSettings(settings), clientOpts...), nil
}

// Update replaces the settings used for clients created from now on.
// Clients already handed out keep their configuration.
func (f *Factory) Update(settings domain.Settings) {
	f.mu.Lock()
	f.settings = settings
	f.mu.Unlock()
	f.limiter.SetRate(settings.Sync.RequestsPerSecond)
}
