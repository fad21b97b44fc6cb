package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

var testTime = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

// createTestCalendar saves a calendar to satisfy foreign key constraints.
func createTestCalendar(t *testing.T, store *Store, id, remoteID string) {
	t.Helper()
	err := store.CalendarStore().Save(context.Background(), domain.Calendar{
		ID:          id,
		RemoteID:    remoteID,
		Name:        "Calendar " + id,
		Incremental: true,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
	})
	require.NoError(t, err)
}

func testEvent(calendarID, eventID string, offset time.Duration) *domain.LocalEvent {
	start := testTime.Add(offset)
	return &domain.LocalEvent{
		CalendarID:      calendarID,
		EventID:         eventID,
		InstanceID:      eventID + "@google.com-1-2",
		Start:           start,
		End:             start.Add(time.Hour),
		Title:           "Event " + eventID,
		RemoteUpdatedAt: testTime.Add(-time.Hour),
	}
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "calsync.db"), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_MigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var version int
	require.NoError(t, second.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

// ==================== Calendar Store ====================

func TestCalendarStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	calendars := store.CalendarStore()

	createTestCalendar(t, store, "cal-1", "primary")

	cal, err := calendars.Get(ctx, "cal-1")
	require.NoError(t, err)
	assert.Equal(t, "primary", cal.RemoteID)
	assert.Equal(t, "Calendar cal-1", cal.Name)
	assert.True(t, cal.Incremental)
	assert.True(t, cal.NeverSynced())
	assert.Nil(t, cal.LastFullSyncAt)
	assert.True(t, testTime.Equal(cal.CreatedAt))

	byRemote, err := calendars.GetByRemoteID(ctx, "primary")
	require.NoError(t, err)
	assert.Equal(t, "cal-1", byRemote.ID)

	_, err = calendars.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = calendars.GetByRemoteID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalendarStore_UpdateAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	calendars := store.CalendarStore()

	createTestCalendar(t, store, "cal-b", "b@example.com")
	createTestCalendar(t, store, "cal-a", "a@example.com")
	require.NoError(t, calendars.Save(ctx, domain.Calendar{ID: "local", Name: "Calendar local"}))

	cal, err := calendars.Get(ctx, "cal-b")
	require.NoError(t, err)
	cal.Name = "Calendar 0"
	require.NoError(t, calendars.Save(ctx, *cal))

	list, err := calendars.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "cal-b", list[0].ID)
	assert.Equal(t, "cal-a", list[1].ID)
	assert.Equal(t, "local", list[2].ID)
	assert.False(t, list[2].Syncable())
}

func TestCalendarStore_AdvanceCursor(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	calendars := store.CalendarStore()
	createTestCalendar(t, store, "cal-1", "primary")

	full := testTime.Add(500 * time.Millisecond)
	cal, err := calendars.AdvanceCursor(ctx, "cal-1", full, false)
	require.NoError(t, err)
	require.NotNil(t, cal.LastSyncedAt)
	assert.True(t, full.Equal(*cal.LastSyncedAt))
	require.NotNil(t, cal.LastFullSyncAt)

	later := testTime.Add(time.Minute)
	_, err = calendars.AdvanceCursor(ctx, "cal-1", later, true)
	require.NoError(t, err)

	// Older timestamps never move the cursor back.
	cal, err = calendars.AdvanceCursor(ctx, "cal-1", testTime, true)
	require.NoError(t, err)
	assert.True(t, later.Equal(*cal.LastSyncedAt))

	stored, err := calendars.Get(ctx, "cal-1")
	require.NoError(t, err)
	assert.True(t, later.Equal(*stored.LastSyncedAt))
	assert.True(t, full.Equal(*stored.LastFullSyncAt))
	assert.True(t, stored.LastSyncIncremental)

	_, err = calendars.AdvanceCursor(ctx, "missing", later, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalendarStore_DeleteCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestCalendar(t, store, "cal-1", "primary")

	require.NoError(t, store.EventStore().Upsert(ctx, testEvent("cal-1", "a", 0)))
	require.NoError(t, store.ChannelStore().Save(ctx, domain.NotificationChannel{
		ChannelID: "chan-1", ResourceID: "res-1", CalendarID: "cal-1", Active: true,
	}))

	require.NoError(t, store.CalendarStore().Delete(ctx, "cal-1"))

	events, err := store.EventStore().ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	assert.Empty(t, events)
	_, err = store.ChannelStore().GetByChannelID(ctx, "chan-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Event Store ====================

func TestEventStore_UpsertIsKeyedByRemoteID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	events := store.EventStore()
	createTestCalendar(t, store, "cal-1", "primary")

	first := testEvent("cal-1", "a", 0)
	require.NoError(t, events.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	again := testEvent("cal-1", "a", 30*time.Minute)
	again.Title = "Moved"
	again.InstanceID = "changed"
	again.CheckedForConflicts = true
	require.NoError(t, events.Upsert(ctx, again))
	assert.Equal(t, first.ID, again.ID)

	stored, err := events.Find(ctx, "cal-1", "a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Moved", stored.Title)
	assert.True(t, again.Start.Equal(stored.Start))
	assert.True(t, stored.CheckedForConflicts)
	assert.Equal(t, first.InstanceID, stored.InstanceID, "instance id is fixed at creation")
	assert.True(t, testTime.Add(-time.Hour).Equal(stored.RemoteUpdatedAt))

	list, err := events.ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEventStore_UpsertRejectsInvalid(t *testing.T) {
	store := setupTestStore(t)
	createTestCalendar(t, store, "cal-1", "primary")

	event := testEvent("cal-1", "a", 0)
	event.Title = ""
	err := store.EventStore().Upsert(context.Background(), event)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEventStore_ConcurrentUpsertsDoNotDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	events := store.EventStore()
	createTestCalendar(t, store, "cal-1", "primary")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := testEvent("cal-1", "same", 0)
			event.Title = fmt.Sprintf("Writer %d", i)
			assert.NoError(t, events.Upsert(ctx, event))
		}(i)
	}
	wg.Wait()

	list, err := events.ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEventStore_ListDeleteAndDeleteByCalendar(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	events := store.EventStore()
	createTestCalendar(t, store, "cal-1", "primary")
	createTestCalendar(t, store, "cal-2", "other")

	require.NoError(t, events.Upsert(ctx, testEvent("cal-1", "late", 2*time.Hour)))
	early := testEvent("cal-1", "early", 0)
	require.NoError(t, events.Upsert(ctx, early))
	require.NoError(t, events.Upsert(ctx, testEvent("cal-2", "x", 0)))

	list, err := events.ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].EventID)
	assert.Equal(t, "late", list[1].EventID)

	require.NoError(t, events.Delete(ctx, early.ID))
	_, err = events.Find(ctx, "cal-1", "early")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, events.DeleteByCalendar(ctx, "cal-1"))
	list, err = events.ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	other, err := events.ListByCalendar(ctx, "cal-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

// ==================== Channel Store ====================

func TestChannelStore_Lifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	channels := store.ChannelStore()
	createTestCalendar(t, store, "cal-1", "primary")

	expiration := testTime.Add(7 * 24 * time.Hour)
	require.NoError(t, channels.Save(ctx, domain.NotificationChannel{
		ID: "local-1", ChannelID: "chan-1", ResourceID: "res-1", CalendarID: "cal-1",
		Token: "secret", Active: true, Expiration: expiration, CreatedAt: testTime,
	}))
	require.NoError(t, channels.Save(ctx, domain.NotificationChannel{
		ChannelID: "chan-2", ResourceID: "res-1", CalendarID: "cal-1",
		Active: true, CreatedAt: testTime.Add(time.Hour),
	}))

	got, err := channels.GetByChannelID(ctx, "chan-1")
	require.NoError(t, err)
	assert.Equal(t, "local-1", got.ID)
	assert.Equal(t, "secret", got.Token)
	assert.True(t, got.Active)
	assert.True(t, expiration.Equal(got.Expiration))

	list, err := channels.ListByCalendar(ctx, "cal-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chan-2", list[0].ChannelID)
	assert.True(t, list[0].Expiration.IsZero())

	require.NoError(t, channels.Deactivate(ctx, "chan-1"))
	got, err = channels.GetByChannelID(ctx, "chan-1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.ErrorIs(t, channels.Deactivate(ctx, "missing"), domain.ErrNotFound)

	require.NoError(t, channels.Delete(ctx, "chan-1"))
	_, err = channels.GetByChannelID(ctx, "chan-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChannelStore_SaveRequiresChannelID(t *testing.T) {
	store := setupTestStore(t)
	err := store.ChannelStore().Save(context.Background(), domain.NotificationChannel{CalendarID: "cal-1"})
	assert.ErrorIs(t, err, domain.ErrMissingChannelID)
}

// ==================== Sync Run Store ====================

func TestSyncRunStore_RecordAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	runs := store.SyncRunStore()
	createTestCalendar(t, store, "cal-1", "primary")

	for i := 0; i < 3; i++ {
		started := testTime.Add(time.Duration(i) * time.Hour)
		run := domain.SyncRun{
			ID:         fmt.Sprintf("run-%d", i),
			CalendarID: "cal-1",
			Strategy:   "smart",
			StartedAt:  started,
			EndedAt:    started.Add(time.Second),
			Success:    i != 1,
			Created:    i,
		}
		if i == 1 {
			run.Error = "service unavailable"
		}
		require.NoError(t, runs.Record(ctx, run))
	}

	list, err := runs.ListByCalendar(ctx, "cal-1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].ID)
	assert.Equal(t, "run-1", list[1].ID)
	assert.False(t, list[1].Success)
	assert.Equal(t, "service unavailable", list[1].Error)

	all, err := runs.ListByCalendar(ctx, "cal-1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
