package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviesvc/internal/config"
)

// mockHealthProbe implements HealthProbe for testing.
type mockHealthProbe struct {
	name     string
	checkErr error
	// delay simulates a slow store; Check blocks for this duration.
	delay  time.Duration
	panics bool
	called atomic.Bool
}

func (m *mockHealthProbe) Name() string { return m.name }

func (m *mockHealthProbe) Check(ctx context.Context) error {
	m.called.Store(true)
	if m.panics {
		panic("driver exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.checkErr
}

func runHealth(t *testing.T, probes ...HealthProbe) (int, healthResponse) {
	t.Helper()
	srv, err := NewServer(&config.Config{}, discardLogger())
	require.NoError(t, err)
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	code, resp := runHealth(t)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.Components)
}

func TestHandleHealth_Healthy(t *testing.T) {
	probe := &mockHealthProbe{name: "postgres"}
	code, resp := runHealth(t, probe)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["postgres"].Status)
	assert.True(t, probe.called.Load())
}

func TestHandleHealth_Unhealthy(t *testing.T) {
	code, resp := runHealth(t, &mockHealthProbe{name: "sqlite", checkErr: errors.New("database is locked")})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "database is locked", resp.Components["sqlite"].Message)
}

func TestHandleHealth_PanickingProbe(t *testing.T) {
	code, resp := runHealth(t, &mockHealthProbe{name: "postgres", panics: true})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Components["postgres"].Message, "driver exploded")
}

func TestHandleHealth_Timeout(t *testing.T) {
	start := time.Now()
	code, resp := runHealth(t,
		&mockHealthProbe{name: "memory"},
		&mockHealthProbe{name: "postgres", delay: 5 * time.Second},
	)

	assert.Less(t, time.Since(start), 4*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "healthy", resp.Components["memory"].Status)
	assert.Equal(t, "unhealthy", resp.Components["postgres"].Status)
}

func TestHandleHealth_ReportsVersionAndLatency(t *testing.T) {
	srv, err := NewServer(&config.Config{Build: config.BuildInfo{Version: "v1.4.0"}}, discardLogger())
	require.NoError(t, err)
	srv.HealthProbes = []HealthProbe{&mockHealthProbe{name: "sqlite", delay: 20 * time.Millisecond}}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "v1.4.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Components["sqlite"].LatencyMS, int64(20))
}
