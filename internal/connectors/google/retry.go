package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

const (
	// DefaultMaxAttempts is the number of attempts for transient failures.
	DefaultMaxAttempts = 3

	// DefaultBackoff is the delay before the first retry.
	DefaultBackoff = 500 * time.Millisecond

	// maxBackoff caps the exponential delay.
	maxBackoff = 30 * time.Second
)

// RetryPolicy retries an operation while it fails with a transient error.
// Only remote errors whose kind is retryable are attempted again; everything
// else is returned on the first failure.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Backoff returns the delay before the given retry (1-based).
	Backoff func(retry int) time.Duration

	// Retryable decides whether a failure is worth another attempt.
	Retryable func(err error) bool

	// OnRetry is called before each retry with the failure that caused it.
	OnRetry func(retry int, err error)
}

// NewRetryPolicy returns a policy with exponential backoff starting at base.
func NewRetryPolicy(maxAttempts int, base time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultBackoff
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(base),
		Retryable:   IsRetryable,
	}
}

// ExponentialBackoff doubles base on every retry, capped at 30 seconds.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(retry int) time.Duration {
		d := base
		for i := 1; i < retry && d < maxBackoff; i++ {
			d *= 2
		}
		if d > maxBackoff {
			d = maxBackoff
		}
		return d
	}
}

// IsRetryable returns true for transient remote failures: service
// unavailable, rate limiting and network errors.
func IsRetryable(err error) bool {
	rerr, ok := domain.AsRemoteError(err)
	return ok && rerr.Retryable()
}

// Do runs op until it succeeds, fails permanently or the attempts run out.
// Exhaustion returns an error matching both domain.ErrMaxRetriesExceeded and
// the last failure.
func (p *RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if p.OnRetry != nil {
				p.OnRetry(attempt-1, last)
			}
			if err := sleep(ctx, p.delay(attempt-1, last)); err != nil {
				return err
			}
		}

		last = op(ctx)
		if last == nil {
			return nil
		}
		if errors.Is(last, context.Canceled) || errors.Is(last, context.DeadlineExceeded) {
			return last
		}
		if !retryable(last) {
			return last
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", domain.ErrMaxRetriesExceeded, attempts, last)
}

// delay prefers a server-suggested Retry-After over the backoff schedule.
func (p *RetryPolicy) delay(retry int, err error) time.Duration {
	if rerr, ok := domain.AsRemoteError(err); ok && rerr.RetryAfter > 0 {
		d := time.Duration(rerr.RetryAfter) * time.Second
		if d > maxBackoff {
			d = maxBackoff
		}
		return d
	}
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(retry)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
