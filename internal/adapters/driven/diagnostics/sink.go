package diagnostics

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/calsync/internal/core/domain"
	"github.com/custodia-labs/calsync/internal/core/ports/driven"
	"github.com/custodia-labs/calsync/internal/logger"
)

// DefaultBuffer is the queue size of an AsyncSink.
const DefaultBuffer = 256

var diagLog = logger.Named("diagnostics")

// LogSink writes diagnostics to the logger. Calendars that cannot be
// watched are informational, client errors and failure batches are
// warnings, and everything else is an error.
type LogSink struct{}

var _ driven.DiagnosticSink = LogSink{}

// Notify implements driven.DiagnosticSink.
func (LogSink) Notify(err error) {
	if err == nil {
		return
	}
	if domain.IsPushNotSupported(err) {
		diagLog.Info("%v", err)
		return
	}
	var batch *domain.SyncFailureBatch
	if domain.IsClientError(err) || errors.As(err, &batch) {
		diagLog.Warn("%v", err)
		return
	}
	diagLog.Error("%v", err)
}

// FanOut forwards every diagnostic to each sink in order.
type FanOut []driven.DiagnosticSink

var _ driven.DiagnosticSink = FanOut(nil)

// Notify implements driven.DiagnosticSink.
func (f FanOut) Notify(err error) {
	for _, sink := range f {
		if sink != nil {
			sink.Notify(err)
		}
	}
}

// AsyncSink queues diagnostics for a background goroutine so Notify never
// blocks. When the queue is full the diagnostic is dropped and counted.
type AsyncSink struct {
	next    driven.DiagnosticSink
	queue   chan error
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

var _ driven.DiagnosticSink = (*AsyncSink)(nil)

// NewAsyncSink starts a sink that delivers to next. A non-positive buffer
// uses DefaultBuffer. Call Close to flush and stop it.
func NewAsyncSink(next driven.DiagnosticSink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &AsyncSink{
		next:  next,
		queue: make(chan error, buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify queues err without blocking.
func (s *AsyncSink) Notify(err error) {
	if err == nil {
		return
	}
	defer func() {
		// Notify after Close sends on a closed channel.
		if recover() != nil {
			s.dropped.Add(1)
		}
	}()
	select {
	case s.queue <- err:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of diagnostics dropped because the queue was
// full or the sink was closed.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close delivers the queued diagnostics and stops the sink.
func (s *AsyncSink) Close() error {
	s.closeOnce.Do(func() {
		close(s.queue)
		<-s.done
		if n := s.dropped.Load(); n > 0 {
			diagLog.Warn("%d diagnostic(s) dropped", n)
		}
	})
	return nil
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for err := range s.queue {
		s.deliver(err)
	}
}

func (s *AsyncSink) deliver(err error) {
	defer func() {
		if p := recover(); p != nil {
			diagLog.Error("diagnostic sink panicked: %v", p)
		}
	}()
	s.next.Notify(err)
}
