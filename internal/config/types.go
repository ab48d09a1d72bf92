package config

import (
	"fmt"
	"strings"
	"time"
)

// Display option values, named after the Intl.DateTimeFormat options they mimic.
const (
	StyleLong    = "long"
	StyleShort   = "short"
	StyleNarrow  = "narrow"
	StyleNumeric = "numeric"
	Style2Digit  = "2-digit"
)

// Mutable is the part of the slot configuration that can be replaced at runtime.
type Mutable struct {
	CalendarID    string `json:"calendarId" mapstructure:"calendar_id"`
	QueryTerm     string `json:"queryTerm" mapstructure:"query_term"`
	MinOffsetDays int    `json:"minOffsetDays" mapstructure:"min_offset_days"`
	DaysRange     int    `json:"daysRange" mapstructure:"days_range"`
}

// Validate checks the invariants of the mutable subset. A MinOffsetDays larger
// than DaysRange is allowed and yields an empty window.
func (m Mutable) Validate() error {
	if strings.TrimSpace(m.CalendarID) == "" {
		return &FieldError{Field: "calendarId", Reason: "is required"}
	}
	if m.MinOffsetDays < 0 {
		return &FieldError{Field: "minOffsetDays", Reason: fmt.Sprintf("must be >= 0, got %d", m.MinOffsetDays)}
	}
	if m.DaysRange <= 0 {
		return &FieldError{Field: "daysRange", Reason: fmt.Sprintf("must be > 0, got %d", m.DaysRange)}
	}
	return nil
}

// DateDisplay selects which date parts appear in a slot label.
// Empty fields are omitted.
type DateDisplay struct {
	Weekday string `json:"weekday,omitempty" mapstructure:"weekday"`
	Day     string `json:"day,omitempty" mapstructure:"day"`
	Month   string `json:"month,omitempty" mapstructure:"month"`
	Year    string `json:"year,omitempty" mapstructure:"year"`
}

// TimeDisplay selects how the time of day is rendered in a slot label.
type TimeDisplay struct {
	Hour   string `json:"hour,omitempty" mapstructure:"hour"`
	Minute string `json:"minute,omitempty" mapstructure:"minute"`
	Hour12 bool   `json:"hour12,omitempty" mapstructure:"hour12"`
}

// SlotQueryConfig is an immutable snapshot of everything a slot request needs.
// Never modify a snapshot obtained from a Store; build a new one instead.
type SlotQueryConfig struct {
	Mutable

	Locale      string
	Location    *time.Location
	DateDisplay DateDisplay
	TimeDisplay TimeDisplay
}

// WithMutable returns a copy of c with the mutable subset replaced.
func (c SlotQueryConfig) WithMutable(m Mutable) *SlotQueryConfig {
	c.Mutable = m
	return &c
}
