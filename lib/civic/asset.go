// Package civic defines the common record schema every platform
// scraper converges on, plus the standardization and dispatch
// machinery shared between them.
package civic

import (
	"fmt"
	"time"
)

// ScrapedBy values embed the scraper version so downstream consumers
// can tell which generation of parser produced a record.
const ScraperVersion = "civicscraper.1.0.0"

// Asset is one document or media link attached to one meeting.
type Asset struct {
	// URL is required; an Asset without one is never emitted.
	URL             string
	AssetName       string
	CommitteeName   string
	Place           string
	StateOrProvince string
	AssetType       string
	// MeetingDate is required; the zero value is never emitted.
	MeetingDate time.Time
	// MeetingTime is the clock portion; TimeKnown reports whether the
	// source actually stated one.
	MeetingTime time.Time
	TimeKnown   bool
	MeetingID   string
	ScrapedBy   string
	ContentType string
	// ContentLength is -1 when the server never told us.
	ContentLength int64
}

// UnknownCommittee is the placeholder for records whose committee the
// page doesn't name.
const UnknownCommittee = "Unknown Committee"

func (a Asset) Validate() error {
	if a.URL == "" {
		return fmt.Errorf("asset has no url")
	}
	if a.MeetingDate.IsZero() {
		return fmt.Errorf("asset %q has no meeting date", a.URL)
	}
	return nil
}

// Collection is the result of one scrape call.
type Collection []Asset

func (c Collection) URLs() []string {
	out := make([]string, len(c))
	for i, a := range c {
		out[i] = a.URL
	}
	return out
}

// FilterDateRange keeps assets whose meeting date falls inside
// [start, end]. A zero bound is open on that side.
func (c Collection) FilterDateRange(start, end time.Time) Collection {
	out := Collection{}
	for _, a := range c {
		if !start.IsZero() && a.MeetingDate.Before(start) {
			continue
		}
		if !end.IsZero() && a.MeetingDate.After(end) {
			continue
		}
		out = append(out, a)
	}
	return out
}
