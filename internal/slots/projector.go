package slots

import (
	"log/slog"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/slotproxy/internal/calendar"
	"github.com/teemow/slotproxy/internal/logging"
)

// Projector maps calendar events to slot choices.
type Projector struct {
	formatter *Formatter
	logger    *slog.Logger
}

// NewProjector creates a Projector that labels slots with formatter.
func NewProjector(formatter *Formatter, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{formatter: formatter, logger: logger}
}

// Project returns one Choice per usable event, in input order. Events without
// a parseable start are dropped and counted in the second return value.
func (p *Projector) Project(events []*gcal.Event) ([]Choice, int) {
	choices := make([]Choice, 0, len(events))
	skipped := 0

	for i, event := range events {
		times, err := calendar.ResolveTimes(event, p.formatter.location)
		if err != nil {
			skipped++
			attrs := []any{slog.Int("index", i), logging.Err(err)}
			if event != nil {
				attrs = append(attrs, slog.String("event_id", event.Id))
			}
			p.logger.Debug("skipping event without usable start", attrs...)
			continue
		}

		choices = append(choices, Choice{
			Text:  p.formatter.Label(times.Start, times.End),
			Value: times.RawStart,
		})
	}

	return choices, skipped
}
