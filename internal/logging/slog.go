package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Attribute keys shared by every log line slotproxy writes.
const (
	KeyOperation = "operation"
	KeyRequestID = "request_id"
	KeyStage     = "stage"
	KeyDuration  = "duration"
	KeyError     = "error"
	KeyCalendar  = "calendar"
	KeyToken     = "token"
)

// WithOperation scopes logger to one operation, such as "slots.list".
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithRequestID tags every line of logger with the request ID.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(RequestID(requestID))
}

func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

func Stage(stage string) slog.Attr {
	return slog.String(KeyStage, stage)
}

// Err is omitted from the output when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Calendar logs a calendar ID in anonymized form.
func Calendar(calendarID string) slog.Attr {
	return slog.String(KeyCalendar, AnonymizeEmail(calendarID))
}

// Token logs only the length of a credential.
func Token(token string) slog.Attr {
	return slog.String(KeyToken, SanitizeToken(token))
}

// AnonymizeEmail hashes an email-shaped identifier so log lines about the
// same calendar or account can be correlated without exposing it.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "id:" + hex.EncodeToString(sum[:8])
}

// SanitizeToken reports a token's length and nothing of its content.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
