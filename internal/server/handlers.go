package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/slotproxy/internal/config"
	"github.com/teemow/slotproxy/internal/instrumentation"
	"github.com/teemow/slotproxy/internal/logging"
	"github.com/teemow/slotproxy/internal/slots"
)

// Client-facing error messages. Failure details are logged, never returned.
const (
	errMsgSlots         = "Failed to retrieve slots."
	errMsgConfigUpdate  = "Failed to update config."
	errMsgInvalidBody   = "Invalid JSON body."
	errMsgInvalidConfig = "Invalid config."
)

// maxConfigBodyBytes bounds the /config/update request body.
const maxConfigBodyBytes = 64 << 10

// SlotsResponse is the success body of GET /slots.
type SlotsResponse struct {
	Choices []slots.Choice `json:"choices"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UpdateResponse is the success body of POST /config/update.
type UpdateResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleSlots serves GET /slots.
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithRequestID(logging.WithOperation(s.sc.Logger(), "http.slots"), RequestIDFromContext(ctx))

	choices, err := s.sc.Slots().Slots(ctx)
	if err != nil {
		attrs := []any{logging.Err(err)}
		var flowErr *slots.FlowError
		if errors.As(err, &flowErr) {
			attrs = append(attrs, logging.Stage(string(flowErr.Stage)))
		}
		logger.Error("failed to retrieve slots", attrs...)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: errMsgSlots})
		return
	}

	logger.Info("slots served", slog.Int("choices", len(choices)))
	writeJSON(w, http.StatusOK, SlotsResponse{Choices: choices})
}

// handleConfig serves GET /config.
func (s *HTTPServer) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sc.Configs().Mutable())
}

// handleConfigUpdate serves POST /config/update. The body replaces the whole
// mutable configuration.
func (s *HTTPServer) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)
	logger := logging.WithRequestID(logging.WithOperation(s.sc.Logger(), "http.config_update"), requestID)

	change := instrumentation.NewConfigChange(requestID).
		WithRemoteAddr(r.RemoteAddr).
		WithSpanContext(ctx)

	var m config.Mutable
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigBodyBytes))
	if err := dec.Decode(&m); err != nil {
		logger.Warn("rejected config update", logging.Err(err))
		s.finishConfigChange(r, change.CompleteWithError(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errMsgInvalidBody})
		return
	}

	previous := s.sc.Configs().Mutable()
	change.WithCalendars(previous.CalendarID, m.CalendarID).WithWindow(m.MinOffsetDays, m.DaysRange)

	if err := s.sc.Configs().Replace(ctx, m); err != nil {
		s.finishConfigChange(r, change.CompleteWithError(err))
		if errors.Is(err, config.ErrInvalidConfig) {
			logger.Warn("rejected config update", logging.Err(err))
			msg := errMsgInvalidConfig
			var fieldErr *config.FieldError
			if errors.As(err, &fieldErr) {
				msg = fieldErr.Message()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
			return
		}
		logger.Error("failed to update config", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: errMsgConfigUpdate})
		return
	}

	s.finishConfigChange(r, change.CompleteSuccess())
	writeJSON(w, http.StatusOK, UpdateResponse{Success: true})
}

func (s *HTTPServer) finishConfigChange(r *http.Request, change *instrumentation.ConfigChange) {
	s.sc.Audit().LogConfigChange(change)
	if m := s.sc.Metrics(); m != nil {
		m.RecordConfigUpdate(r.Context(), change.Status(), change.CalendarID)
	}
}
