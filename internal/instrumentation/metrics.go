package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrRoute     = "route"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrStage     = "stage"
	attrDomain    = "calendar_domain"
)

var (
	httpBuckets     = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	upstreamBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Metrics records slotproxy's counters and histograms. The zero value is
// usable and records nothing.
type Metrics struct {
	httpRequests      metric.Int64Counter
	httpDuration      metric.Float64Histogram
	googleOperations  metric.Int64Counter
	googleDuration    metric.Float64Histogram
	tokenRequests     metric.Int64Counter
	slotRequests      metric.Int64Counter
	slotDuration      metric.Float64Histogram
	skippedEvents     metric.Int64Counter
	configUpdates     metric.Int64Counter
	withCalendarLabel bool
}

// instrumentSet creates instruments on one meter and keeps the first error of
// each so NewMetrics can report them together.
type instrumentSet struct {
	meter metric.Meter
	errs  []error
}

func (s *instrumentSet) counter(name, description, unit string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("counter %s: %w", name, err))
	}
	return c
}

func (s *instrumentSet) seconds(name, description string, buckets []float64) metric.Float64Histogram {
	h, err := s.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...))
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("histogram %s: %w", name, err))
	}
	return h
}

// NewMetrics creates every instrument on meter. With detailedLabels, config
// updates are also labelled with the calendar domain.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	s := &instrumentSet{meter: meter}

	m := &Metrics{
		httpRequests: s.counter("http_requests_total",
			"HTTP requests by method, route and status code", "{request}"),
		httpDuration: s.seconds("http_request_duration_seconds",
			"HTTP request latency", httpBuckets),
		googleOperations: s.counter("google_api_operations_total",
			"Calls to Google APIs by service, operation and status", "{operation}"),
		googleDuration: s.seconds("google_api_operation_duration_seconds",
			"Google API call latency", upstreamBuckets),
		tokenRequests: s.counter("access_token_requests_total",
			"Access token lookups by result (cached, success, failure)", "{request}"),
		slotRequests: s.counter("slot_requests_total",
			"Slot requests by status and the stage they ended in", "{request}"),
		slotDuration: s.seconds("slot_request_duration_seconds",
			"Slot request latency from signing to response", upstreamBuckets),
		skippedEvents: s.counter("slot_skipped_events_total",
			"Calendar events dropped for lacking a usable start", "{event}"),
		configUpdates: s.counter("slot_config_updates_total",
			"Runtime slot configuration updates by status", "{update}"),
		withCalendarLabel: detailedLabels,
	}

	if len(s.errs) > 0 {
		return nil, fmt.Errorf("failed to create instruments: %w", errors.Join(s.errs...))
	}
	return m, nil
}

// RecordHTTPRequest counts one served request. route is the matched mux
// pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m.httpRequests == nil {
		return
	}

	opt := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, route),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, opt)
	m.httpDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordGoogleAPIOperation counts one call to a Google API. status is
// StatusSuccess or StatusError.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m.googleOperations == nil {
		return
	}

	opt := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleOperations.Add(ctx, 1, opt)
	m.googleDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordTokenExchange counts one access token lookup with a TokenResult value.
func (m *Metrics) RecordTokenExchange(ctx context.Context, result string) {
	if m.tokenRequests == nil {
		return
	}
	m.tokenRequests.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordSlotRequest counts one finished slot request. stage is the stage the
// request failed in, or responded.
func (m *Metrics) RecordSlotRequest(ctx context.Context, status, stage string, duration time.Duration) {
	if m.slotRequests == nil {
		return
	}

	opt := metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.String(attrStage, stage),
	)
	m.slotRequests.Add(ctx, 1, opt)
	m.slotDuration.Record(ctx, duration.Seconds(), opt)
}

// RecordSkippedEvents adds n dropped events. Non-positive n is ignored.
func (m *Metrics) RecordSkippedEvents(ctx context.Context, n int) {
	if m.skippedEvents == nil || n <= 0 {
		return
	}
	m.skippedEvents.Add(ctx, int64(n))
}

// RecordConfigUpdate counts one configuration update attempt.
func (m *Metrics) RecordConfigUpdate(ctx context.Context, status, calendarID string) {
	if m.configUpdates == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrStatus, status)}
	if m.withCalendarLabel && calendarID != "" {
		attrs = append(attrs, attribute.String(attrDomain, CalendarDomain(calendarID)))
	}
	m.configUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}
