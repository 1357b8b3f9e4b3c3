package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candleworks/catalogsync/internal/api"
	"github.com/candleworks/catalogsync/internal/history"
	"github.com/candleworks/catalogsync/internal/sync"
	"github.com/candleworks/catalogsync/internal/telemetry"
)

type stubSyncer struct {
	store *history.Store
}

func (s *stubSyncer) RunAsync(context.Context, sync.Trigger) error { return nil }
func (s *stubSyncer) History() *history.Store                      { return s.store }

func (*stubSyncer) Status() sync.Status {
	return sync.Status{State: sync.StateIdle, Message: "Waiting for first sync"}
}

type stubSchedule struct{}

func (*stubSchedule) Reschedule(string, string) error { return nil }
func (*stubSchedule) Pause()                          {}
func (*stubSchedule) Resume()                         {}
func (*stubSchedule) NextFire() (time.Time, bool)     { return time.Time{}, false }
func (*stubSchedule) Expression() string              { return "0 3 * * *" }
func (*stubSchedule) Paused() bool                    { return false }

func newTestServer() http.Handler {
	return api.NewServer(
		&stubSyncer{store: history.NewStore(10)},
		&stubSchedule{},
		telemetry.NewMetrics(),
		api.WithMiddlewares(api.LoggingMiddleware),
	)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer()

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

func TestStatusMounted(t *testing.T) {
	t.Parallel()

	server := newTestServer()

	req, err := http.NewRequest("GET", "/api/v0/status", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "idle", response["state"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer()

	req, err := http.NewRequest("GET", "/metrics", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "catalogsync_payload_bytes_total")
}

func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	server := newTestServer()

	req, err := http.NewRequest("GET", "/api/v0/nope", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
