package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	TokenResultSuccess = "success"
	TokenResultFailure = "failure"
	TokenResultCached  = "cached"

	ServiceCalendar = "calendar"
	ServiceOAuth2   = "oauth2"

	OperationList          = "list"
	OperationTokenExchange = "token_exchange"
)

// Defaults applied by DefaultConfig.
const (
	DefaultServiceName        = "slotproxy"
	DefaultPrometheusEndpoint = "/metrics"
	DefaultTraceSamplingRate  = 0.1
	DefaultMetricInterval     = 10 * time.Second
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the otel service.name resource attribute
	ServiceName    string
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname (the pod name on Kubernetes)
	ServiceInstanceID string
	K8sNamespace      string
	K8sPodName        string

	// Enabled turns metrics and tracing on; INSTRUMENTATION_ENABLED=false disables both
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout
	MetricsExporter string

	// TracingExporter is otlp, stdout or none
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without scheme
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1]
	TraceSamplingRate float64

	// MetricInterval is the push interval of the otlp and stdout metric exporters
	MetricInterval time.Duration

	// PrometheusEndpoint is the path the metrics server exposes
	PrometheusEndpoint string

	// DetailedLabels adds the calendar domain to config update metrics
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging of config changes.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full calendar IDs instead of their domain
	IncludePII bool

	// LogLevel is informational; audit events are always written
	LogLevel string
}

// DefaultConfig reads the instrumentation settings from the environment.
func DefaultConfig() Config {
	return configFromEnv(os.LookupEnv)
}

// envSource looks up one environment variable.
type envSource func(key string) (string, bool)

func (e envSource) str(key, def string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return def
}

func (e envSource) boolean(key string, def bool) bool {
	if v, ok := e(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func (e envSource) float(key string, def float64) float64 {
	if v, ok := e(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func (e envSource) duration(key string, def time.Duration) time.Duration {
	if v, ok := e(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func configFromEnv(env envSource) Config {
	return Config{
		ServiceName:        env.str("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion:     "unknown",
		ServiceInstanceID:  env.str("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:       env.str("K8S_NAMESPACE", env.str("POD_NAMESPACE", "")),
		K8sPodName:         env.str("K8S_POD_NAME", env.str("HOSTNAME", "")),
		Enabled:            env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:    env.str("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:    env.str("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:       env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:       env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate:  env.float("OTEL_TRACES_SAMPLER_ARG", DefaultTraceSamplingRate),
		MetricInterval:     env.duration("OTEL_METRIC_EXPORT_INTERVAL", DefaultMetricInterval),
		PrometheusEndpoint: env.str("PROMETHEUS_ENDPOINT", DefaultPrometheusEndpoint),
		DetailedLabels:     env.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   env.str("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate checks the exporter selection and sampling rate.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	return nil
}
