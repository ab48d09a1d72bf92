package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotproxy/internal/instrumentation"
)

func newTestProvider(t *testing.T, config instrumentation.Config) *instrumentation.Provider {
	t.Helper()

	provider, err := instrumentation.NewProvider(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func prometheusConfig() instrumentation.Config {
	return instrumentation.Config{
		ServiceName:     "slotproxy-test",
		ServiceVersion:  "test",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	}
}

// startMetricsServer starts s on a free port and stops it when the test ends.
func startMetricsServer(t *testing.T, s *MetricsServer) {
	t.Helper()

	ready := make(chan struct{})
	serverErr := make(chan error, 1)
	go func() {
		if err := s.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ready:
	case err := <-serverErr:
		t.Fatalf("metrics server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server startup timed out")
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
		assert.NoError(t, <-serverErr)
	})
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestNewMetricsServer(t *testing.T) {
	stdout := prometheusConfig()
	stdout.MetricsExporter = instrumentation.ExporterStdout

	tests := []struct {
		name    string
		config  MetricsServerConfig
		wantErr error
	}{
		{
			name:   "prometheus provider",
			config: MetricsServerConfig{Addr: ":9090", Enabled: true, InstrumentationProvider: newTestProvider(t, prometheusConfig())},
		},
		{
			name:   "default addr",
			config: MetricsServerConfig{Enabled: true, InstrumentationProvider: newTestProvider(t, prometheusConfig())},
		},
		{
			name:    "nil provider",
			config:  MetricsServerConfig{Addr: ":9090", Enabled: true},
			wantErr: ErrNoProvider,
		},
		{
			name:    "disabled provider",
			config:  MetricsServerConfig{Addr: ":9090", Enabled: true, InstrumentationProvider: newTestProvider(t, instrumentation.Config{})},
			wantErr: ErrProviderDisabled,
		},
		{
			name:    "push exporter has nothing to scrape",
			config:  MetricsServerConfig{Addr: ":9090", Enabled: true, InstrumentationProvider: newTestProvider(t, stdout)},
			wantErr: ErrNoPrometheusExport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMetricsServer(tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
			if tt.config.Addr == "" {
				assert.Equal(t, DefaultMetricsAddr, s.Addr())
			} else {
				assert.Equal(t, tt.config.Addr, s.Addr())
			}
		})
	}
}

func TestMetricsServer_ServesSlotMetrics(t *testing.T) {
	provider := newTestProvider(t, prometheusConfig())
	provider.Metrics().RecordSlotRequest(context.Background(), instrumentation.StatusSuccess, "responded", 20*time.Millisecond)
	provider.Metrics().RecordTokenExchange(context.Background(), instrumentation.TokenResultSuccess)

	s, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Enabled: true, InstrumentationProvider: provider})
	require.NoError(t, err)
	startMetricsServer(t, s)

	status, body := get(t, "http://"+s.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, body = get(t, "http://"+s.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "slot_requests_total")
	assert.Contains(t, body, "access_token_requests_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsServer_CustomPath(t *testing.T) {
	config := prometheusConfig()
	config.PrometheusEndpoint = "/internal/metrics"
	provider := newTestProvider(t, config)

	s, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", Enabled: true, InstrumentationProvider: provider})
	require.NoError(t, err)
	startMetricsServer(t, s)

	status, _ := get(t, "http://"+s.Addr()+"/internal/metrics")
	assert.Equal(t, http.StatusOK, status)

	status, _ = get(t, "http://"+s.Addr()+"/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	s, err := NewMetricsServer(MetricsServerConfig{Addr: ":9090", Enabled: true, InstrumentationProvider: newTestProvider(t, prometheusConfig())})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
}
