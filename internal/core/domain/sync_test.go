package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQuery_IsIncremental(t *testing.T) {
	assert.False(t, EventQuery{}.IsIncremental())
	assert.False(t, EventQuery{RangeStart: time.Now()}.IsIncremental())
	assert.True(t, EventQuery{UpdatedAfter: time.Now()}.IsIncremental())
}

func TestStrategyByName(t *testing.T) {
	tests := []struct {
		name string
		want SyncStrategy
	}{
		{"", SmartSync},
		{"smart", SmartSync},
		{"INCREMENTAL", IncrementalSync},
		{" full ", FullResync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StrategyByName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := StrategyByName("eventual")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBuiltInStrategies(t *testing.T) {
	assert.False(t, FullResync.Incremental)
	assert.False(t, FullResync.FallbackToFull)
	assert.True(t, IncrementalSync.Incremental)
	assert.False(t, IncrementalSync.FallbackToFull)
	assert.True(t, SmartSync.Incremental)
	assert.True(t, SmartSync.FallbackToFull)
}

func TestSyncResult_Processed(t *testing.T) {
	r := SyncResult{Created: 2, Updated: 3, Deleted: 1, Failed: 4, Unchanged: 7}
	assert.Equal(t, 6, r.Processed())
}

func TestSyncFailureBatch_Error(t *testing.T) {
	batch := &SyncFailureBatch{
		CalendarID:  "cal-1",
		Incremental: true,
		Failures: []EventFailure{
			{EventID: "e1", CalendarID: "cal-1", Err: errors.New("title is required")},
			{EventID: "e2", CalendarID: "cal-1", Err: errors.New("boom")},
		},
	}

	msg := batch.Error()
	assert.Contains(t, msg, "incremental sync of calendar cal-1")
	assert.Contains(t, msg, "2 event(s) failed")
	assert.Contains(t, msg, "e1: title is required")
	assert.Contains(t, msg, "e2: boom")

	batch.Incremental = false
	assert.Contains(t, batch.Error(), "full sync")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, int64(6000), s.Sync.MaxResults)
	assert.True(t, s.Sync.FollowPages)
	assert.Equal(t, 3, s.Sync.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, s.Sync.Backoff)
	assert.Equal(t, "smart", s.Sync.Strategy)
	assert.Equal(t, ":8080", s.Webhook.ListenAddr)
}

func TestSyncData_Covers(t *testing.T) {
	base := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	data := &SyncData{RangeStart: base, RangeEnd: base.Add(24 * time.Hour)}
	event := func(start, end time.Duration) *LocalEvent {
		return &LocalEvent{Start: base.Add(start), End: base.Add(end)}
	}

	assert.True(t, data.Covers(event(time.Hour, 2*time.Hour)))
	assert.True(t, data.Covers(event(-time.Hour, time.Minute)), "overlaps the start")
	assert.False(t, data.Covers(event(-2*time.Hour, 0)), "ends at the start")
	assert.False(t, data.Covers(event(24*time.Hour, 25*time.Hour)), "starts at the end")
	assert.True(t, (&SyncData{}).Covers(event(-1000*time.Hour, -999*time.Hour)))
}
