package calendar

import (
	"strings"
	"time"

	"github.com/teemow/slotproxy/internal/config"
)

// OrderByStartTime asks the API to sort expanded events by start time.
const OrderByStartTime = "startTime"

// TimeWindow is the [Start, End) range event start times are queried over.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window contains no instants. This happens when
// the minimum offset lies beyond the window length.
func (w TimeWindow) Empty() bool {
	return !w.Start.Before(w.End)
}

// QuerySpec holds the parameters of one events.list call.
type QuerySpec struct {
	CalendarID   string
	TimeMin      time.Time
	TimeMax      time.Time
	SingleEvents bool
	OrderBy      string

	// Query is the free-text filter; empty means no filter
	Query string
}

// BuildQuery computes the query window and events.list parameters for cfg at now.
// The window starts MinOffsetDays and ends DaysRange calendar days after now.
func BuildQuery(cfg config.Mutable, now time.Time) (TimeWindow, QuerySpec) {
	window := TimeWindow{
		Start: now.AddDate(0, 0, cfg.MinOffsetDays),
		End:   now.AddDate(0, 0, cfg.DaysRange),
	}

	q := QuerySpec{
		CalendarID:   cfg.CalendarID,
		TimeMin:      window.Start,
		TimeMax:      window.End,
		SingleEvents: true,
		OrderBy:      OrderByStartTime,
		Query:        strings.TrimSpace(cfg.QueryTerm),
	}

	return window, q
}
