package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

func TestCalendarStore_SaveGet(t *testing.T) {
	store := NewCalendarStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Calendar{ID: "cal-1", RemoteID: "primary", Name: "Work"}))

	cal, err := store.Get(ctx, "cal-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", cal.RemoteID)
	assert.Equal(t, "Work", cal.Name)

	byRemote, err := store.GetByRemoteID(ctx, "primary")
	require.NoError(t, err)
	assert.Equal(t, "cal-1", byRemote.ID)
}

func TestCalendarStore_NotFound(t *testing.T) {
	store := NewCalendarStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.GetByRemoteID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.AdvanceCursor(ctx, "missing", time.Now(), true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalendarStore_ListAndDelete(t *testing.T) {
	store := NewCalendarStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Calendar{ID: "b", Name: "Personal"}))
	require.NoError(t, store.Save(ctx, domain.Calendar{ID: "a", Name: "Holidays"}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Holidays", list[0].Name)

	require.NoError(t, store.Delete(ctx, "a"))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCalendarStore_AdvanceCursor(t *testing.T) {
	store := NewCalendarStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.Calendar{ID: "cal-1", RemoteID: "primary"}))

	first := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	cal, err := store.AdvanceCursor(ctx, "cal-1", first, false)
	require.NoError(t, err)
	require.NotNil(t, cal.LastSyncedAt)
	assert.Equal(t, first, *cal.LastSyncedAt)
	require.NotNil(t, cal.LastFullSyncAt)
	assert.False(t, cal.LastSyncIncremental)

	cal, err = store.AdvanceCursor(ctx, "cal-1", first.Add(-time.Hour), true)
	require.NoError(t, err)
	assert.Equal(t, first, *cal.LastSyncedAt)

	second := first.Add(time.Hour)
	_, err = store.AdvanceCursor(ctx, "cal-1", second, true)
	require.NoError(t, err)

	stored, err := store.Get(ctx, "cal-1")
	require.NoError(t, err)
	assert.Equal(t, second, *stored.LastSyncedAt)
	assert.True(t, stored.LastSyncIncremental)
	assert.Equal(t, first, *stored.LastFullSyncAt)
}
