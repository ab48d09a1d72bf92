package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// ConfigChange captures one attempt to replace the slot configuration at
// runtime, for audit logging.
//
// # Privacy Considerations
//
// Calendar IDs of personal calendars are email addresses. When logging, use
// CalendarDomain() for general logs and only log full IDs in audit streams.
type ConfigChange struct {
	// Request identity
	RequestID  string
	RemoteAddr string

	// Calendar before and after the change
	PreviousCalendarID string
	CalendarID         string

	// Query window requested by the change
	MinOffsetDays int
	DaysRange     int

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewConfigChange creates a new ConfigChange with timing started.
// Call Complete() when the update finishes.
func NewConfigChange(requestID string) *ConfigChange {
	return &ConfigChange{
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// WithRemoteAddr sets the address of the client that requested the change.
func (cc *ConfigChange) WithRemoteAddr(addr string) *ConfigChange {
	cc.RemoteAddr = addr
	return cc
}

// WithCalendars sets the calendar IDs before and after the change.
func (cc *ConfigChange) WithCalendars(previous, next string) *ConfigChange {
	cc.PreviousCalendarID = previous
	cc.CalendarID = next
	return cc
}

// WithWindow sets the requested query window.
func (cc *ConfigChange) WithWindow(minOffsetDays, daysRange int) *ConfigChange {
	cc.MinOffsetDays = minOffsetDays
	cc.DaysRange = daysRange
	return cc
}

// WithSpanContext extracts trace context from the current span.
func (cc *ConfigChange) WithSpanContext(ctx context.Context) *ConfigChange {
	cc.TraceID, cc.SpanID = TraceIDs(ctx)
	return cc
}

// Complete marks the change as completed and calculates duration.
func (cc *ConfigChange) Complete(success bool, err error) *ConfigChange {
	cc.Duration = time.Since(cc.StartTime)
	cc.Success = success
	if err != nil {
		cc.Error = err.Error()
	}
	return cc
}

// CompleteWithError marks the change as failed with the given error.
func (cc *ConfigChange) CompleteWithError(err error) *ConfigChange {
	return cc.Complete(false, err)
}

// CompleteSuccess marks the change as successful.
func (cc *ConfigChange) CompleteSuccess() *ConfigChange {
	return cc.Complete(true, nil)
}

// Status returns "success" or "error" based on the Success field.
func (cc *ConfigChange) Status() string {
	if cc.Success {
		return StatusSuccess
	}
	return StatusError
}

// CalendarDomain returns the domain of the new calendar ID.
func (cc *ConfigChange) CalendarDomain() string {
	return CalendarDomain(cc.CalendarID)
}

// LogAttrs returns slog attributes with calendar IDs reduced to their domain.
func (cc *ConfigChange) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("calendar_domain", cc.CalendarDomain()),
		slog.Int("min_offset_days", cc.MinOffsetDays),
		slog.Int("days_range", cc.DaysRange),
		slog.Duration("duration", cc.Duration),
		slog.Bool("success", cc.Success),
	}
	return cc.appendCommon(attrs)
}

// LogAuditAttrs returns slog attributes for full audit logging, including the
// full calendar IDs before and after the change.
func (cc *ConfigChange) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("calendar", cc.CalendarID),
		slog.Int("min_offset_days", cc.MinOffsetDays),
		slog.Int("days_range", cc.DaysRange),
		slog.Duration("duration", cc.Duration),
		slog.Bool("success", cc.Success),
	}
	if cc.PreviousCalendarID != "" {
		attrs = append(attrs, slog.String("previous_calendar", cc.PreviousCalendarID))
	}
	if cc.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", cc.SpanID))
	}
	return cc.appendCommon(attrs)
}

func (cc *ConfigChange) appendCommon(attrs []slog.Attr) []slog.Attr {
	if cc.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", cc.RequestID))
	}
	if cc.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", cc.RemoteAddr))
	}
	if cc.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", cc.TraceID))
	}
	if cc.Error != "" {
		attrs = append(attrs, slog.String("error", cc.Error))
	}
	return attrs
}

// AuditLogger provides structured audit logging for configuration changes.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, full calendar IDs are not included in logs.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full calendar IDs in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogConfigChange logs a configuration change. Failed changes are logged at
// warn level.
func (al *AuditLogger) LogConfigChange(cc *ConfigChange) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = cc.LogAuditAttrs()
	} else {
		attrs = cc.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if cc.Success {
		al.logger.Info("config_updated", args...)
	} else {
		al.logger.Warn("config_update_failed", args...)
	}
}
