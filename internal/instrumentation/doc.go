// Package instrumentation wires OpenTelemetry metrics, tracing and config
// change auditing into slotproxy.
//
// A Provider is built once at startup from DefaultConfig and owns the global
// meter and tracer providers. Its Metrics recorder is safe to use when
// instrumentation is disabled; every Record method then does nothing.
//
// # Metrics
//
//	http_requests_total                     method, route, status
//	http_request_duration_seconds           method, route
//	google_api_operations_total             service, operation, status
//	google_api_operation_duration_seconds   service, operation
//	access_token_requests_total             result (cached, success, failure)
//	slot_requests_total                     status, stage
//	slot_request_duration_seconds           status
//	slot_skipped_events_total
//	slot_config_updates_total               status [, calendar_domain]
//
// With the prometheus exporter the scrape output also carries the Go runtime
// and process collectors.
//
// # Spans
//
// slots.list wraps one slot request. google.calendar.list and
// google.oauth2.token_exchange are its client children. Calendar IDs only
// appear as CalendarDomain. Inbound W3C traceparent and baggage headers are
// honoured through the global propagator.
//
// # Environment
//
//	INSTRUMENTATION_ENABLED        default true
//	METRICS_EXPORTER               prometheus | otlp | stdout
//	TRACING_EXPORTER               none | otlp | stdout
//	OTEL_EXPORTER_OTLP_ENDPOINT    host:port, required for otlp
//	OTEL_EXPORTER_OTLP_INSECURE    plain HTTP to the collector
//	OTEL_TRACES_SAMPLER_ARG        parent-based ratio, default 0.1
//	OTEL_METRIC_EXPORT_INTERVAL    push interval, default 10s
//	OTEL_SERVICE_NAME              default slotproxy
//	PROMETHEUS_ENDPOINT            scrape path, default /metrics
//	METRICS_DETAILED_LABELS        add calendar_domain to config updates
//	AUDIT_LOGGING_ENABLED          default true
//	AUDIT_LOGGING_INCLUDE_PII      log full calendar IDs
package instrumentation
