package calendar

import (
	"errors"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// dateLayout is the layout of all-day event dates.
const dateLayout = "2006-01-02"

// ErrMissingStart means an event carries neither start.dateTime nor start.date.
var ErrMissingStart = errors.New("event has no start")

// EventTimes is the resolved start and end of one event.
type EventTimes struct {
	// RawStart is the start exactly as the API sent it
	RawStart string

	Start  time.Time
	End    time.Time
	AllDay bool
}

// boundary returns the authoritative value of an EventDateTime: the timed
// instant when present, else the all-day date.
func boundary(edt *calendar.EventDateTime) (raw string, allDay bool) {
	if edt == nil {
		return "", false
	}
	if edt.DateTime != "" {
		return edt.DateTime, false
	}
	return edt.Date, edt.Date != ""
}

// parseBoundary parses raw as an RFC 3339 instant or, for all-day values, as a
// date at midnight in loc.
func parseBoundary(raw string, allDay bool, loc *time.Location) (time.Time, error) {
	if allDay {
		return time.ParseInLocation(dateLayout, raw, loc)
	}
	return time.Parse(time.RFC3339, raw)
}

// ResolveTimes picks the authoritative start and end of event. All-day dates
// are anchored at midnight in loc. A missing end collapses onto the start.
func ResolveTimes(event *calendar.Event, loc *time.Location) (EventTimes, error) {
	if event == nil {
		return EventTimes{}, ErrMissingStart
	}
	if loc == nil {
		loc = time.UTC
	}

	rawStart, startAllDay := boundary(event.Start)
	if rawStart == "" {
		return EventTimes{}, ErrMissingStart
	}

	start, err := parseBoundary(rawStart, startAllDay, loc)
	if err != nil {
		return EventTimes{}, fmt.Errorf("invalid start %q: %w", rawStart, err)
	}

	times := EventTimes{
		RawStart: rawStart,
		Start:    start,
		End:      start,
		AllDay:   startAllDay,
	}

	if rawEnd, endAllDay := boundary(event.End); rawEnd != "" {
		end, err := parseBoundary(rawEnd, endAllDay, loc)
		if err != nil {
			return EventTimes{}, fmt.Errorf("invalid end %q: %w", rawEnd, err)
		}
		times.End = end
	}

	return times, nil
}
