package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span slotproxy starts.
const TracerName = "github.com/teemow/slotproxy"

// Span attribute keys.
const (
	AttrGoogleService   = "google.service"
	AttrGoogleOperation = "google.operation"
	AttrCalendarDomain  = "slotproxy.calendar_domain"
	AttrStage           = "slotproxy.stage"
	AttrChoices         = "slotproxy.choices"
	AttrSkippedEvents   = "slotproxy.skipped_events"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. The caller must end it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(AttrGoogleService, service),
		attribute.String(AttrGoogleOperation, operation),
	}, attrs...)

	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanStatus marks span as failed with err, or as OK when err is nil.
func SetSpanStatus(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// CalendarAttr identifies a calendar by domain only.
func CalendarAttr(calendarID string) attribute.KeyValue {
	return attribute.String(AttrCalendarDomain, CalendarDomain(calendarID))
}

// SlotOutcomeAttrs describe where a slot request ended and what it produced.
func SlotOutcomeAttrs(stage string, choices, skipped int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStage, stage),
		attribute.Int(AttrChoices, choices),
		attribute.Int(AttrSkippedEvents, skipped),
	}
}

// TraceIDs returns the trace and span IDs of the span in ctx, or empty
// strings when ctx carries no valid span.
func TraceIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
