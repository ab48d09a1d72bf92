package slots

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/it"
	"github.com/go-playground/locales/nl"

	"github.com/teemow/slotproxy/internal/config"
)

// DefaultLocale is used when a configured locale is not supported.
const DefaultLocale = "en_GB"

const (
	// rangeSeparator joins the date and the time range.
	rangeSeparator = " – "

	// timeSeparator joins the start and end times.
	timeSeparator = "–"
)

// dateStyle captures how a locale orders and joins date parts.
type dateStyle struct {
	monthFirst bool
	weekdaySep string
	daySuffix  string
	monthJoin  string
	yearJoin   string
	numericSep string
}

type localeEntry struct {
	translator func() locales.Translator
	style      dateStyle
}

var (
	dayFirst = dateStyle{weekdaySep: ", ", monthJoin: " ", yearJoin: " ", numericSep: "/"}
	usStyle  = dateStyle{monthFirst: true, weekdaySep: ", ", monthJoin: " ", yearJoin: ", ", numericSep: "/"}
)

var supportedLocales = map[string]localeEntry{
	"en_GB": {translator: en_GB.New, style: dayFirst},
	"en_US": {translator: en_US.New, style: usStyle},
	"en":    {translator: en.New, style: usStyle},
	"de":    {translator: de.New, style: dateStyle{weekdaySep: ", ", daySuffix: ".", monthJoin: " ", yearJoin: " ", numericSep: "."}},
	"fr":    {translator: fr.New, style: dateStyle{weekdaySep: " ", monthJoin: " ", yearJoin: " ", numericSep: "/"}},
	"es":    {translator: es.New, style: dateStyle{weekdaySep: ", ", monthJoin: " de ", yearJoin: " de ", numericSep: "/"}},
	"it":    {translator: it.New, style: dateStyle{weekdaySep: " ", monthJoin: " ", yearJoin: " ", numericSep: "/"}},
	"nl":    {translator: nl.New, style: dateStyle{weekdaySep: " ", monthJoin: " ", yearJoin: " ", numericSep: "-"}},
}

// resolveLocale maps a BCP 47 style tag ("en-GB", "de_AT", "fr") to a
// supported locale, falling back to the bare language and then DefaultLocale.
func resolveLocale(tag string) (string, localeEntry) {
	name := strings.ReplaceAll(strings.TrimSpace(tag), "-", "_")
	if parts := strings.SplitN(name, "_", 2); len(parts) == 2 {
		name = strings.ToLower(parts[0]) + "_" + strings.ToUpper(parts[1])
	} else {
		name = strings.ToLower(name)
	}

	if entry, ok := supportedLocales[name]; ok {
		return name, entry
	}
	if lang, _, found := strings.Cut(name, "_"); found {
		if entry, ok := supportedLocales[lang]; ok {
			return lang, entry
		}
	}
	return DefaultLocale, supportedLocales[DefaultLocale]
}

// Formatter renders slot labels for one locale, time zone and set of display
// options. It is immutable and safe for concurrent use.
type Formatter struct {
	locale     string
	translator locales.Translator
	style      dateStyle
	location   *time.Location
	date       config.DateDisplay
	clock      config.TimeDisplay
}

// NewFormatter creates a Formatter. Unsupported locales fall back to
// DefaultLocale; a nil location means UTC.
func NewFormatter(locale string, location *time.Location, date config.DateDisplay, clock config.TimeDisplay) *Formatter {
	name, entry := resolveLocale(locale)
	if location == nil {
		location = time.UTC
	}
	if clock.Hour == "" && clock.Minute == "" {
		clock.Hour, clock.Minute = config.Style2Digit, config.Style2Digit
	}

	return &Formatter{
		locale:     name,
		translator: entry.translator(),
		style:      entry.style,
		location:   location,
		date:       date,
		clock:      clock,
	}
}

// NewFormatterFromConfig creates a Formatter from a config snapshot.
func NewFormatterFromConfig(cfg *config.SlotQueryConfig) *Formatter {
	return NewFormatter(cfg.Locale, cfg.Location, cfg.DateDisplay, cfg.TimeDisplay)
}

// Locale returns the resolved locale name.
func (f *Formatter) Locale() string {
	return f.locale
}

// Label renders "<date> – <start>–<end>".
func (f *Formatter) Label(start, end time.Time) string {
	return f.Date(start) + rangeSeparator + f.Time(start) + timeSeparator + f.Time(end)
}

// Date renders the date parts of t selected by the date display options.
func (f *Formatter) Date(t time.Time) string {
	t = t.In(f.location)
	s := f.style

	var day, year string
	switch f.date.Day {
	case config.StyleNumeric:
		day = fmt.Sprintf("%d", t.Day())
	case config.Style2Digit:
		day = fmt.Sprintf("%02d", t.Day())
	}
	switch f.date.Year {
	case config.StyleNumeric:
		year = fmt.Sprintf("%d", t.Year())
	case config.Style2Digit:
		year = fmt.Sprintf("%02d", t.Year()%100)
	}

	var rest string
	switch f.date.Month {
	case config.StyleLong, config.StyleShort, config.StyleNarrow:
		month := f.monthName(t.Month())
		if day != "" {
			day += s.daySuffix
		}
		if s.monthFirst {
			rest = joinNonEmpty(" ", month, day)
		} else {
			rest = joinNonEmpty(s.monthJoin, day, month)
		}
		rest = joinNonEmpty(s.yearJoin, rest, year)
	case config.StyleNumeric, config.Style2Digit:
		month := fmt.Sprintf("%d", int(t.Month()))
		if f.date.Month == config.Style2Digit {
			month = fmt.Sprintf("%02d", int(t.Month()))
		}
		if s.monthFirst {
			rest = joinNonEmpty(s.numericSep, month, day, year)
		} else {
			rest = joinNonEmpty(s.numericSep, day, month, year)
		}
	default:
		if day != "" {
			day += s.daySuffix
		}
		rest = joinNonEmpty(" ", day, year)
	}

	return joinNonEmpty(s.weekdaySep, f.weekdayName(t.Weekday()), rest)
}

// Time renders the time of day of t selected by the time display options.
func (f *Formatter) Time(t time.Time) string {
	t = t.In(f.location)

	hour := t.Hour()
	var period string
	if f.clock.Hour12 {
		period = "AM"
		if hour >= 12 {
			period = "PM"
		}
		hour %= 12
		if hour == 0 {
			hour = 12
		}
	}

	var out string
	switch f.clock.Hour {
	case config.StyleNumeric:
		out = fmt.Sprintf("%d", hour)
	case config.Style2Digit:
		out = fmt.Sprintf("%02d", hour)
	}
	if f.clock.Minute != "" {
		out = joinNonEmpty(":", out, fmt.Sprintf("%02d", t.Minute()))
	}
	if period != "" {
		out += " " + period
	}
	return out
}

func (f *Formatter) monthName(m time.Month) string {
	switch f.date.Month {
	case config.StyleShort:
		return f.translator.MonthAbbreviated(m)
	case config.StyleNarrow:
		return f.translator.MonthNarrow(m)
	default:
		return f.translator.MonthWide(m)
	}
}

func (f *Formatter) weekdayName(d time.Weekday) string {
	switch f.date.Weekday {
	case config.StyleLong:
		return f.translator.WeekdayWide(d)
	case config.StyleShort:
		return f.translator.WeekdayAbbreviated(d)
	case config.StyleNarrow:
		return f.translator.WeekdayNarrow(d)
	default:
		return ""
	}
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
