// Package dateutil normalizes the free-text date and time strings found
// on civic meeting platforms into a canonical calendar date plus an
// optional time of day.
package dateutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"civicscraper/lib/timezone"

	"github.com/araddon/dateparse"
)

// Normalized is the result of parsing one (date, time) string pair.
// TimeKnown distinguishes a clock that was actually present in the
// source from the defaulted midnight, so callers can decide whether to
// surface a time field at all.
type Normalized struct {
	Date      time.Time
	Hour      int
	Minute    int
	Second    int
	TimeKnown bool
}

func (n Normalized) DateString() string {
	return n.Date.Format("2006-01-02")
}

func (n Normalized) TimeString() string {
	return fmt.Sprintf("%02d:%02d:%02d", n.Hour, n.Minute, n.Second)
}

// DateTime combines the date and clock into a single instant in the
// date's location.
func (n Normalized) DateTime() time.Time {
	return time.Date(
		n.Date.Year(), n.Date.Month(), n.Date.Day(),
		n.Hour, n.Minute, n.Second, 0,
		n.Date.Location(),
	)
}

// ParseError reports that no recognized format matched a date string.
// Callers must drop the record; substituting the current time would
// fabricate a wrong date.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no recognized date format matched %q", e.Input)
}

var (
	nbsp            = strings.NewReplacer(" ", " ")
	dashRuns        = regexp.MustCompile(`\s*-\s*`)
	innerWhitespace = regexp.MustCompile(`\s+`)
	embeddedTime    = regexp.MustCompile(`(\d{1,2}[:.]\d{2}\s*(?:AM|PM|am|pm)?)`)
	tzTokens        = regexp.MustCompile(`(?i)\s+(?:UTC|GMT|[ECMPAH][SD]T)\b\.?`)
	aggressiveTime  = regexp.MustCompile(`^(\d{1,4})(?:[:.](\d{2}))?\s*(AM|PM)?$`)
)

// dateFormats is tried in order after the general-purpose parser fails.
// First match wins.
var dateFormats = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"2006-01-02",
	"Monday, January 2, 2006",
	"Jan. 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"01-02-06",
	"01/02/06",
	// dash normalization in cleanup turns 2024-01-15 into 2024 01 15,
	// so the space-separated forms are accepted too
	"2006 01 02",
	"01 02 2006",
	"01 02 06",
}

var timeFormats = []string{
	"3:04 PM",
	"3:04PM",
	"15:04:05",
	"15:04",
	"304 PM",
}

// DateFormats returns a copy of the explicit format ladder. Exposed so
// round-trip tests can exercise every accepted input shape.
func DateFormats() []string {
	out := make([]string, len(dateFormats))
	copy(out, dateFormats)
	return out
}

// Normalize parses a free-text date string and optional time string
// into a canonical date plus time of day, localized into the named
// zone. An empty time string makes Normalize search the date string
// for an embedded clock. A date that matches no format returns a
// *ParseError; a time that matches no format keeps the date and leaves
// TimeKnown false.
func Normalize(dateStr, timeStr, zone string) (Normalized, error) {
	clean := cleanup(dateStr)

	if timeStr == "" {
		if m := embeddedTime.FindString(clean); m != "" {
			timeStr = m
			clean = strings.TrimSpace(strings.Replace(clean, m, "", 1))
			clean = strings.TrimSpace(innerWhitespace.ReplaceAllString(clean, " "))
		}
	}

	// timezone tokens in the source text are ignored outright; the
	// target zone comes from the zone argument.
	clean = strings.TrimSpace(tzTokens.ReplaceAllString(clean, ""))
	if clean == "" {
		return Normalized{}, &ParseError{Input: dateStr}
	}

	var year int
	var month time.Month
	var day int
	parsed := false

	if t, err := dateparse.ParseAny(clean); err == nil {
		year, month, day = t.Year(), t.Month(), t.Day()
		parsed = true
	} else {
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, clean); err == nil {
				year, month, day = t.Year(), t.Month(), t.Day()
				parsed = true
				break
			}
		}
	}
	if !parsed {
		return Normalized{}, &ParseError{Input: dateStr}
	}

	// localization failures (unknown zone, DST oddities) never fail
	// the record; the naive value is kept instead.
	loc, _ := timezone.Resolve(zone)
	out := Normalized{Date: time.Date(year, month, day, 0, 0, 0, 0, loc)}

	if timeStr != "" {
		if h, m, s, ok := parseClock(timeStr); ok {
			out.Hour, out.Minute, out.Second = h, m, s
			out.TimeKnown = true
		}
	}
	return out, nil
}

func cleanup(s string) string {
	s = nbsp.Replace(s)
	s = dashRuns.ReplaceAllString(s, " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func parseClock(timeStr string) (hour, minute, second int, ok bool) {
	clean := strings.ToUpper(cleanup(timeStr))
	clean = strings.ReplaceAll(clean, ".", ":")

	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, clean); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}

	// aggressive fallback: pull hour/minute/meridiem digits directly,
	// including 4-digit military time ("1300" -> 13:00).
	m := aggressiveTime.FindStringSubmatch(strings.ReplaceAll(clean, " ", ""))
	if m == nil {
		m = aggressiveTime.FindStringSubmatch(clean)
	}
	if m == nil {
		return 0, 0, 0, false
	}

	hourStr, minuteStr, meridiem := m[1], m[2], m[3]
	if len(hourStr) == 4 && minuteStr == "" && meridiem == "" {
		hour, _ = strconv.Atoi(hourStr[:2])
		minute, _ = strconv.Atoi(hourStr[2:])
	} else if len(hourStr) <= 2 {
		hour, _ = strconv.Atoi(hourStr)
		if minuteStr != "" {
			minute, _ = strconv.Atoi(minuteStr)
		}
		switch meridiem {
		case "PM":
			if hour < 12 {
				hour += 12
			}
		case "AM":
			if hour == 12 {
				hour = 0
			}
		}
	} else {
		return 0, 0, 0, false
	}

	// out-of-range values are rejected, not clamped.
	if hour > 23 || minute > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, 0, true
}
