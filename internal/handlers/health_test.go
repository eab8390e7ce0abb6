package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))

	tests := []struct {
		name           string
		components     map[string]Pinger
		expectedStatus int
		expectedHealth string
		expected       map[string]string
	}{
		{
			name:           "all healthy",
			components:     map[string]Pinger{"rpc": stubPinger{}, "redis": stubPinger{}},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expected:       map[string]string{"rpc": "healthy", "redis": "healthy"},
		},
		{
			name:           "rpc down",
			components:     map[string]Pinger{"rpc": stubPinger{err: errors.New("connection refused")}, "redis": stubPinger{}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expected:       map[string]string{"rpc": "unhealthy", "redis": "healthy"},
		},
		{
			name:           "redis not configured",
			components:     map[string]Pinger{"rpc": stubPinger{}, "redis": nil},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expected:       map[string]string{"rpc": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.components, logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tt.expectedHealth, response.Status)
			assert.Equal(t, "nexus-gamemaster", response.Service)
			assert.Equal(t, tt.expected, response.Components)
			assert.WithinDuration(t, time.Now(), response.Timestamp, time.Second)
		})
	}
}

func TestStatusServer_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "gamemaster_test_total",
		Help: "Test counter.",
	}).Inc()

	server := NewStatusServer(":0", NewHealthHandler(map[string]Pinger{"rpc": stubPinger{}}, logger), registry, logger)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "gamemaster_test_total 1")
}
