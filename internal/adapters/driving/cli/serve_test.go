package cli

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/calsync/internal/adapters/driving/webhook"
)

// captureServer replaces the webhook server and returns the captured fake.
func captureServer(err error) *fakeServer {
	fake := &fakeServer{err: err}
	newServer = func(addr string, handler http.Handler) serverRunner {
		fake.addr = addr
		fake.handler = handler
		return fake
	}
	return fake
}

func notify(handler http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodPost, webhook.NotificationPath, http.NoBody)
	req.Header.Set(webhook.HeaderChannelID, "chan-1")
	req.Header.Set(webhook.HeaderResourceID, "res-1")
	req.Header.Set(webhook.HeaderResourceState, "exists")
	if token != "" {
		req.Header.Set(webhook.HeaderChannelToken, token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestServe_UsesConfiguredAddress(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	require.NoError(t, ts.settings.Set("webhook.listen_addr", "127.0.0.1:9090"))
	fake := captureServer(nil)

	out, err := execute("serve")

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", fake.addr)
	assert.Contains(t, out, "Listening for notifications on 127.0.0.1:9090")
}

func TestServe_AddrFlag(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()
	fake := captureServer(nil)

	_, err := execute("serve", "--addr", ":7000")

	require.NoError(t, err)
	assert.Equal(t, ":7000", fake.addr)
}

func TestServe_RouterDispatchesToHandler(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	fake := captureServer(nil)

	_, err := execute("serve")
	require.NoError(t, err)
	require.NotNil(t, fake.handler)

	assert.Equal(t, http.StatusOK, notify(fake.handler, ""))
	assert.Equal(t, []string{"chan-1"}, ts.webhooks.calls)
}

func TestServe_TokenFollowsSettings(t *testing.T) {
	ts, cleanup := setupCLITest()
	defer cleanup()
	require.NoError(t, ts.settings.Set("webhook.token", "first"))
	fake := captureServer(nil)

	_, err := execute("serve")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, notify(fake.handler, "first"))
	assert.Equal(t, http.StatusForbidden, notify(fake.handler, "second"))

	// A reloaded config applies without restarting the router.
	require.NoError(t, ts.settings.Set("webhook.token", "second"))
	assert.Equal(t, http.StatusOK, notify(fake.handler, "second"))
}

func TestServe_RunsAndStopsBackgroundTasks(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()
	task := newBlockingTask()
	backgroundTasks = []BackgroundTask{task}
	captureServer(nil)

	_, err := execute("serve")
	require.NoError(t, err)

	select {
	case <-task.stopped:
	case <-time.After(time.Second):
		t.Fatal("background task was not stopped")
	}
}

func TestServe_ServerError(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()
	captureServer(errors.New("address already in use"))

	_, err := execute("serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}

func TestServe_NotConfigured(t *testing.T) {
	_, cleanup := setupCLITest()
	defer cleanup()
	webhookHandler = nil

	_, err := execute("serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook handler not configured")
}
