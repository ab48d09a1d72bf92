package instrumentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		wantErr       bool
		wantEnabled   bool
		wantScrapable bool
	}{
		{
			name:   "disabled",
			config: Config{ServiceName: "test-service", Enabled: false},
		},
		{
			name:          "prometheus without tracing",
			config:        Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
			wantEnabled:   true,
			wantScrapable: true,
		},
		{
			name:        "stdout exporters",
			config:      Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterStdout, TracingExporter: ExporterStdout, TraceSamplingRate: 1},
			wantEnabled: true,
		},
		{
			name:    "invalid metrics exporter",
			config:  Config{Enabled: true, MetricsExporter: "invalid", TracingExporter: ExporterNone},
			wantErr: true,
		},
		{
			name:    "invalid tracing exporter",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "invalid"},
			wantErr: true,
		},
		{
			name:    "otlp tracing without endpoint",
			config:  Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: ExporterOTLP},
			wantErr: true,
		},
		{
			name:    "disabled config is not validated",
			config:  Config{Enabled: false, MetricsExporter: "invalid"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() { _ = provider.Shutdown(ctx) }()

			if provider.Enabled() != tt.wantEnabled {
				t.Errorf("Enabled() = %v, want %v", provider.Enabled(), tt.wantEnabled)
			}
			if provider.Metrics() == nil {
				t.Error("Metrics() must never be nil")
			}
			if got := provider.PrometheusHandler() != nil; got != tt.wantScrapable {
				t.Errorf("PrometheusHandler() present = %v, want %v", got, tt.wantScrapable)
			}
			if provider.Tracer("test") == nil {
				t.Error("Tracer() must never be nil")
			}
		})
	}
}

func TestProvider_PrometheusHandlerServesRecordedMetrics(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	provider.Metrics().RecordSkippedEvents(ctx, 3)
	provider.Metrics().RecordConfigUpdate(ctx, StatusSuccess, "team@example.com")

	rec := httptest.NewRecorder()
	provider.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, name := range []string{"slot_skipped_events_total", "slot_config_updates_total", "process_cpu_seconds_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("scrape output missing %s", name)
		}
	}
}

func TestProvider_PrometheusPath(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{endpoint: "", want: DefaultPrometheusEndpoint},
		{endpoint: "/internal/metrics", want: "/internal/metrics"},
	}

	for _, tt := range tests {
		provider, err := NewProvider(context.Background(), Config{PrometheusEndpoint: tt.endpoint})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := provider.PrometheusPath(); got != tt.want {
			t.Errorf("PrometheusPath() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewProvider_InstallsTraceContextPropagator(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, f := range fields {
		if f == "traceparent" {
			found = true
		}
	}
	if !found {
		t.Errorf("propagator fields = %v, want traceparent", fields)
	}
}

func TestProvider_AuditLogger(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		AuditLogging: AuditLoggingConfig{Enabled: true, IncludePII: true},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	al := provider.AuditLogger(nil)
	if al == nil {
		t.Fatal("expected audit logger to be non-nil")
	}
	if !al.enabled || !al.includePII {
		t.Errorf("audit logger config not applied: enabled=%v includePII=%v", al.enabled, al.includePII)
	}
}
