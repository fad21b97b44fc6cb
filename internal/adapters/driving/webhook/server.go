package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driving"
	"github.com/custodia-labs/calsync/internal/logger"
)

// Push notification headers set by Google.
const (
	HeaderChannelID     = "X-Goog-Channel-ID"
	HeaderResourceID    = "X-Goog-Resource-ID"
	HeaderResourceState = "X-Goog-Resource-State"
	HeaderChannelToken  = "X-Goog-Channel-Token"
)

// StateSync is the handshake notification sent when a channel is created.
const StateSync = "sync"

// NotificationPath is the route Google delivers notifications to.
const NotificationPath = "/webhooks/google"

// DefaultSyncTimeout bounds the sync triggered by one notification.
const DefaultSyncTimeout = 2 * time.Minute

var serverLog = logger.Named("webhook-server")

// MetricsExporter instruments the router and serves the scrape endpoint.
type MetricsExporter interface {
	Middleware() func(http.Handler) http.Handler
	Handler() http.Handler
}

// Options configures the router.
type Options struct {
	// Token returns the expected X-Goog-Channel-Token. It is read on every
	// request so a reloaded config takes effect. Nil or empty disables checks.
	Token func() string

	// Metrics is optional. When set, requests are instrumented and
	// /metrics is served.
	Metrics MetricsExporter

	// SyncTimeout bounds each dispatched sync. Zero uses DefaultSyncTimeout.
	SyncTimeout time.Duration
}

// NewRouter wires the webhook, health and metrics routes.
func NewRouter(handler driving.WebhookHandler, opts Options) http.Handler {
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = DefaultSyncTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	n := &notifications{handler: handler, token: opts.Token, timeout: opts.SyncTimeout}
	r.Post(NotificationPath, n.serveHTTP)

	return r
}

type notifications struct {
	handler driving.WebhookHandler
	token   func() string
	timeout time.Duration
}

func (n *notifications) serveHTTP(w http.ResponseWriter, r *http.Request) {
	channelID := r.Header.Get(HeaderChannelID)
	resourceID := r.Header.Get(HeaderResourceID)
	state := r.Header.Get(HeaderResourceState)

	if channelID == "" {
		http.Error(w, "missing channel id", http.StatusBadRequest)
		return
	}
	if !n.authorised(r.Header.Get(HeaderChannelToken)) {
		serverLog.Warn("channel %s: token mismatch", channelID)
		http.Error(w, "invalid channel token", http.StatusForbidden)
		return
	}
	if state == StateSync {
		serverLog.Debug("channel %s: sync handshake", channelID)
		w.WriteHeader(http.StatusOK)
		return
	}

	// A notification is processed to completion even if Google hangs up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), n.timeout)
	defer cancel()

	err := n.handler.Handle(ctx, channelID, resourceID)
	status := statusFor(err)
	if status != http.StatusOK {
		serverLog.Info("channel %s (%s): %v", channelID, state, err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (n *notifications) authorised(got string) bool {
	if n.token == nil {
		return true
	}
	want := n.token()
	if want == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// statusFor maps dispatcher errors to HTTP statuses. Unknown errors are
// treated as processing failures.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrChannelInactive):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Server runs the webhook router until its context ends.
type Server struct {
	srv *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		serverLog.Info("listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
