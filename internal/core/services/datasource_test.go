package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

func TestSyncDataSource_Query(t *testing.T) {
	cursor := baseTime.Add(-time.Hour)

	tests := []struct {
		name        string
		cal         domain.Calendar
		incremental bool
		wantCursor  bool
	}{
		{"never synced", domain.Calendar{Incremental: true}, true, false},
		{"cursor used", domain.Calendar{Incremental: true, LastSyncedAt: &cursor}, true, true},
		{"full requested", domain.Calendar{Incremental: true, LastSyncedAt: &cursor}, false, false},
		{"calendar disallows incremental", domain.Calendar{LastSyncedAt: &cursor}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSyncDataSource(domain.SyncSettings{})
			q := src.Query(&tt.cal, tt.incremental)
			assert.Equal(t, tt.wantCursor, q.IsIncremental())
			if tt.wantCursor {
				assert.Equal(t, cursor, q.UpdatedAfter)
			}
		})
	}
}

func TestSyncDataSource_QueryWindows(t *testing.T) {
	src := NewSyncDataSource(domain.SyncSettings{
		PastWindow:   7 * 24 * time.Hour,
		FutureWindow: 30 * 24 * time.Hour,
	})
	src.now = func() time.Time { return baseTime }

	q := src.Query(&domain.Calendar{}, false)
	assert.Equal(t, baseTime.Add(-7*24*time.Hour), q.RangeStart)
	assert.Equal(t, baseTime.Add(30*24*time.Hour), q.RangeEnd)

	unbounded := NewSyncDataSource(domain.SyncSettings{}).Query(&domain.Calendar{}, false)
	assert.True(t, unbounded.RangeStart.IsZero())
	assert.True(t, unbounded.RangeEnd.IsZero())
}

func TestSyncDataSource_Update(t *testing.T) {
	src := NewSyncDataSource(domain.SyncSettings{})
	src.now = func() time.Time { return baseTime }

	src.Update(domain.SyncSettings{PastWindow: 24 * time.Hour})
	q := src.Query(&domain.Calendar{}, false)

	assert.Equal(t, baseTime.Add(-24*time.Hour), q.RangeStart)
	assert.True(t, q.RangeEnd.IsZero())
}

func TestSyncDataSource_Fetch_Classifies(t *testing.T) {
	client := newMockCalendarClient()
	client.listFn = fixedResults(timedEvent("a", 0), cancelledEvent("b"), timedEvent("c", time.Hour))

	data, err := NewSyncDataSource(domain.SyncSettings{}).Fetch(
		context.Background(), client, &domain.Calendar{RemoteID: "primary"}, true)
	require.NoError(t, err)

	require.Len(t, data.NewAndUpdated, 2)
	assert.Equal(t, "a", data.NewAndUpdated[0].ID)
	assert.Equal(t, "c", data.NewAndUpdated[1].ID)
	require.Len(t, data.Deleted, 1)
	assert.Equal(t, "b", data.Deleted[0].ID)
	assert.Equal(t, baseTime.Add(time.Minute), data.Timestamp)
	assert.False(t, data.Incremental)
}

func TestSyncDataSource_Fetch_CarriesWindowAndCompleteness(t *testing.T) {
	client := newMockCalendarClient()
	client.listFn = completeResults(timedEvent("a", 0))
	src := NewSyncDataSource(domain.SyncSettings{PastWindow: time.Hour, FutureWindow: 2 * time.Hour})
	src.now = func() time.Time { return baseTime }

	data, err := src.Fetch(context.Background(), client, &domain.Calendar{RemoteID: "primary"}, false)
	require.NoError(t, err)

	assert.True(t, data.Complete)
	assert.Equal(t, baseTime.Add(-time.Hour), data.RangeStart)
	assert.Equal(t, baseTime.Add(2*time.Hour), data.RangeEnd)
}

func TestSyncDataSource_Fetch_Error(t *testing.T) {
	client := newMockCalendarClient()
	client.listFn = func(context.Context, string, domain.EventQuery) (*domain.FetchResult, error) {
		return nil, errors.New("boom")
	}

	data, err := NewSyncDataSource(domain.SyncSettings{}).Fetch(
		context.Background(), client, &domain.Calendar{RemoteID: "primary"}, false)
	assert.Nil(t, data)
	assert.EqualError(t, err, "boom")
}
