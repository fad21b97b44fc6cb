package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("google.endpoint", "http://localhost"))
	require.NoError(t, store.Set("sync.max_results", int64(250)))
	require.NoError(t, store.Set("sync.max_retries", 4))
	require.NoError(t, store.Set("metrics.enabled", true))

	assert.Equal(t, "http://localhost", store.GetString("google.endpoint"))
	assert.Equal(t, 250, store.GetInt("sync.max_results"))
	assert.Equal(t, 4, store.GetInt("sync.max_retries"))
	assert.True(t, store.GetBool("metrics.enabled"))

	// Wrong types and missing keys yield zero values.
	assert.Empty(t, store.GetString("sync.max_results"))
	assert.Zero(t, store.GetInt("google.endpoint"))
	assert.False(t, store.GetBool("missing"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("webhook.token", "x"))
	require.NoError(t, store.Set("google.client_id", "y"))

	assert.Equal(t, []string{"google.client_id", "webhook.token"}, store.Keys())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}
