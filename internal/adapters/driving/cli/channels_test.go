package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/core/domain"
)

func TestWatch_Created(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	ts.channels.result = &domain.WatchResult{
		Status: domain.WatchCreated,
		Channel: &domain.NotificationChannel{
			ChannelID:  "chan-1",
			ResourceID: "res-1",
			Expiration: testTime.Add(7 * 24 * time.Hour),
		},
	}

	out, err := execute("watch", "cal-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Watching calendar cal-1.")
	assert.Contains(t, out, "chan-1")
	assert.Contains(t, out, "res-1")
	assert.Contains(t, out, "Expires:")
}

func TestWatch_AlreadyWatching(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	ts.channels.result = &domain.WatchResult{
		Status:  domain.WatchExisting,
		Channel: &domain.NotificationChannel{ChannelID: "chan-1", ResourceID: "res-1"},
	}

	out, err := execute("watch", "cal-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Already watching calendar cal-1.")
	assert.Contains(t, out, "chan-1")
	assert.NotContains(t, out, "Expires:")
}

func TestWatch_Unsupported(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	ts.channels.result = &domain.WatchResult{Status: domain.WatchUnsupported}

	out, err := execute("watch", "cal-1")

	require.NoError(t, err)
	assert.Contains(t, out, "does not support push notifications")
}

func TestWatch_Error(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	ts.channels.err = &domain.RemoteError{Kind: domain.KindUserPrivileges, Status: 401}

	_, err := execute("watch", "cal-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUserPrivileges)
}

func TestUnwatch(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()

	out, err := execute("unwatch", "chan-1")

	require.NoError(t, err)
	assert.Equal(t, "chan-1", ts.channels.unwatched)
	assert.Contains(t, out, "Channel chan-1 stopped.")
}

func TestChannels(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	future := time.Now().Add(time.Hour)
	ts.channels.channels = []domain.NotificationChannel{
		{ChannelID: "chan-active", Active: true, Expiration: future},
		{ChannelID: "chan-stopped", Active: false},
		{ChannelID: "chan-expired", Active: true, Expiration: testTime},
	}

	out, err := execute("channels", "cal-1")

	require.NoError(t, err)
	assert.Regexp(t, `chan-active\s+active`, out)
	assert.Regexp(t, `chan-stopped\s+stopped`, out)
	assert.Regexp(t, `chan-expired\s+expired`, out)
}

func TestChannels_Empty(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()

	out, err := execute("channels", "cal-1")

	require.NoError(t, err)
	assert.Contains(t, out, "calsync watch cal-1")
}
