package slots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/slotproxy/internal/calendar"
	"github.com/teemow/slotproxy/internal/config"
	"github.com/teemow/slotproxy/internal/google"
	"github.com/teemow/slotproxy/internal/instrumentation"
	"github.com/teemow/slotproxy/internal/logging"
)

// Stage is a step of the slot request flow.
type Stage string

// Flow stages, in order.
const (
	StageIdle       Stage = "idle"
	StageSigning    Stage = "signing"
	StageExchanging Stage = "exchanging"
	StageQuerying   Stage = "querying"
	StageProjecting Stage = "projecting"
	StageResponded  Stage = "responded"
)

// FlowError is the terminal failure of a slot request.
type FlowError struct {
	Stage Stage
	Err   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("slot request failed while %s: %v", e.Stage, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// ConfigSource supplies the active configuration snapshot.
type ConfigSource interface {
	Current() *config.SlotQueryConfig
}

// TokenSource supplies access tokens. Errors wrap google.ErrSigning or
// google.ErrTokenExchange.
type TokenSource interface {
	AccessToken(ctx context.Context) (*google.AccessToken, error)
}

// EventLister runs an events query.
type EventLister interface {
	ListEvents(ctx context.Context, token *oauth2.Token, q calendar.QuerySpec) ([]*gcal.Event, error)
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Configs ConfigSource
	Tokens  TokenSource
	Events  EventLister

	// Now overrides the clock, for tests
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Service runs slot requests. It keeps no per-request state and can serve
// any number of requests concurrently.
type Service struct {
	configs ConfigSource
	tokens  TokenSource
	events  EventLister
	now     func() time.Time
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		configs: cfg.Configs,
		tokens:  cfg.Tokens,
		events:  cfg.Events,
		now:     cfg.Now,
		logger:  logging.WithOperation(cfg.Logger, "slots.list"),
		metrics: cfg.Metrics,
	}
}

// Slots runs one slot request against a single configuration snapshot.
func (s *Service) Slots(ctx context.Context) ([]Choice, error) {
	ctx, span := instrumentation.StartSpan(ctx, "slots.list")
	defer span.End()

	start := time.Now()
	choices, skipped, err := s.run(ctx)

	status := instrumentation.StatusSuccess
	stage := StageResponded
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		status = instrumentation.StatusError
		stage = flowErr.Stage
	}
	instrumentation.SetSpanStatus(span, err)
	span.SetAttributes(instrumentation.SlotOutcomeAttrs(string(stage), len(choices), skipped)...)

	if s.metrics != nil {
		s.metrics.RecordSlotRequest(ctx, status, string(stage), time.Since(start))
		if skipped > 0 {
			s.metrics.RecordSkippedEvents(ctx, skipped)
		}
	}

	return choices, err
}

func (s *Service) run(ctx context.Context) ([]Choice, int, error) {
	cfg := s.configs.Current()

	window, q := calendar.BuildQuery(cfg.Mutable, s.now())
	trace.SpanFromContext(ctx).SetAttributes(instrumentation.CalendarAttr(q.CalendarID))
	logger := s.logger.With(
		logging.Calendar(q.CalendarID),
		slog.Time("time_min", window.Start),
		slog.Time("time_max", window.End))

	if window.Empty() {
		logger.Debug("query window is empty, skipping upstream calls")
		return []Choice{}, 0, nil
	}

	logger.Debug("requesting access token", slog.String("stage", string(StageSigning)))
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		stage := StageExchanging
		if errors.Is(err, google.ErrSigning) {
			stage = StageSigning
		}
		return nil, 0, &FlowError{Stage: stage, Err: err}
	}
	logger.Debug("access token obtained", logging.Token(token.Value))

	events, err := s.events.ListEvents(ctx, token.OAuth2(), q)
	if err != nil {
		return nil, 0, &FlowError{Stage: StageQuerying, Err: err}
	}
	logger.Debug("events fetched", slog.Int("count", len(events)))

	choices, skipped := NewProjector(NewFormatterFromConfig(cfg), logger).Project(events)
	if skipped > 0 {
		logger.Warn("skipped malformed events", slog.Int("skipped", skipped))
	}
	return choices, skipped, nil
}
