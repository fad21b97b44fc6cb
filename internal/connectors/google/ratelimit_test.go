package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	require.NotNil(t, rl)
	assert.Equal(t, DefaultBurst, rl.limiter.Burst())
	assert.InDelta(t, DefaultRequestsPerSecond, float64(rl.limiter.Limit()), 0.001)
}

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(100, 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
}

func TestRateLimiter_RecordRateLimitError(t *testing.T) {
	rl := NewRateLimiter(100, 5)

	rl.RecordRateLimitError(30)

	assert.False(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_RecordRateLimitErrorDefault(t *testing.T) {
	rl := NewRateLimiter(100, 5)

	rl.RecordRateLimitError(0)

	assert.WithinDuration(t, time.Now().Add(60*time.Second), rl.retryAt, 2*time.Second)
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_SetRate(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	rl.SetRate(20)
	assert.InDelta(t, 20.0, rl.Rate(), 0.001)

	rl.SetRate(0)
	assert.InDelta(t, DefaultRequestsPerSecond, rl.Rate(), 0.001)
}
