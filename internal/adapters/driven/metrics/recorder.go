package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var (
	_ driven.SyncMetrics    = (*Recorder)(nil)
	_ driven.DiagnosticSink = (*Recorder)(nil)
)

// Recorder records sync, webhook and HTTP metrics in a Prometheus registry.
type Recorder struct {
	gatherer prometheus.Gatherer

	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	syncEvents   *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	retries      *prometheus.CounterVec
	diagnostics  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewRecorder registers the calsync metrics with reg.
// Use prometheus.NewRegistry in tests; each registry accepts one recorder.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		gatherer: reg,

		syncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_sync_runs_total",
			Help: "Total number of calendar sync runs.",
		}, []string{"strategy", "outcome"}),

		syncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calsync_sync_duration_seconds",
			Help:    "Histogram of calendar sync run durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),

		syncEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_sync_events_total",
			Help: "Events applied by sync runs, by action.",
		}, []string{"action"}),

		webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_webhook_notifications_total",
			Help: "Push notifications received, by outcome.",
		}, []string{"outcome"}),

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_remote_retries_total",
			Help: "Remote API calls retried after a transient failure.",
		}, []string{"operation"}),

		diagnostics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_diagnostics_total",
			Help: "Diagnostics reported, by kind.",
		}, []string{"kind"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "calsync_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "calsync_http_request_duration_seconds",
			Help:    "Histogram of latencies for HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveSync records a finished run.
func (r *Recorder) ObserveSync(_ string, strategy string, result *domain.SyncResult, err error, elapsed time.Duration) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case result != nil && result.Failed > 0:
		outcome = "partial"
	}

	r.syncRuns.WithLabelValues(strategy, outcome).Inc()
	r.syncDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	if result == nil {
		return
	}
	r.syncEvents.WithLabelValues("created").Add(float64(result.Created))
	r.syncEvents.WithLabelValues("updated").Add(float64(result.Updated))
	r.syncEvents.WithLabelValues("deleted").Add(float64(result.Deleted))
	r.syncEvents.WithLabelValues("failed").Add(float64(result.Failed))
}

// ObserveWebhook records the outcome of a webhook dispatch.
func (r *Recorder) ObserveWebhook(outcome string) {
	r.webhooks.WithLabelValues(outcome).Inc()
}

// ObserveRetry records one retried remote call.
func (r *Recorder) ObserveRetry(operation string) {
	r.retries.WithLabelValues(operation).Inc()
}

// Notify counts a diagnostic, making the recorder usable as a
// diagnostic sink.
func (r *Recorder) Notify(err error) {
	if err == nil {
		return
	}
	r.diagnostics.WithLabelValues(diagnosticKind(err)).Inc()
}

func diagnosticKind(err error) string {
	var batch *domain.SyncFailureBatch
	if errors.As(err, &batch) {
		return "event_failures"
	}
	if rerr, ok := domain.AsRemoteError(err); ok {
		return rerr.Kind.String()
	}
	switch {
	case errors.Is(err, domain.ErrUnexpectedPagination):
		return "unexpected_pagination"
	case errors.Is(err, domain.ErrMissingServerTimestamp):
		return "missing_timestamp"
	case errors.Is(err, domain.ErrMaxRetriesExceeded):
		return "max_retries"
	}
	return "other"
}

// Middleware records request metrics labelled with the chi route pattern.
func (r *Recorder) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

			next.ServeHTTP(ww, req)

			route := routePattern(req)
			r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(ww.Status())).Inc()
			r.httpDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// routePattern is read after the handler ran, when chi has filled in the
// matched pattern.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
