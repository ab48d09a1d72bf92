package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotproxy/internal/config"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, "test")

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		mutable    config.Mutable
		ready      bool
		shutdown   bool
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "ready",
			mutable:    defaultMutable(),
			ready:      true,
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"ready": "ok", "shutdown": "ok", "config": "ok"},
		},
		{
			name:       "not ready",
			mutable:    defaultMutable(),
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": "not ready", "shutdown": "ok", "config": "ok"},
		},
		{
			name:       "shutting down",
			mutable:    defaultMutable(),
			ready:      true,
			shutdown:   true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": "ok", "shutdown": "shutting down", "config": "ok"},
		},
		{
			name:       "invalid config",
			mutable:    config.Mutable{},
			ready:      true,
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"ready": "ok", "shutdown": "ok", "config": "invalid config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewServerContext(context.Background(), ServerContextConfig{
				Slots:   &fakeSlots{},
				Configs: &fakeStore{current: tt.mutable},
			})
			require.NoError(t, err)
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			h := NewHealthChecker(sc, "test")
			h.SetReady(tt.ready)

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	h := NewHealthChecker(nil, "1.2.3")

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
}

func TestHealthChecker_DetailedShuttingDown(t *testing.T) {
	sc, err := NewServerContext(context.Background(), ServerContextConfig{
		Slots:   &fakeSlots{},
		Configs: &fakeStore{current: defaultMutable()},
	})
	require.NoError(t, err)
	require.NoError(t, sc.Shutdown())

	h := NewHealthChecker(sc, "1.2.3")
	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "shutting down", resp.Status)
	assert.Equal(t, "shutting down", resp.Checks["shutdown"])
	assert.Equal(t, "ok", resp.Checks["config"])
}
