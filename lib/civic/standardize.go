package civic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"civicscraper/lib/dateutil"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/linkclass"
	"civicscraper/lib/meetingid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("civicscraper.lib.civic")

// RawMeeting is the per-extractor intermediate: one meeting as the
// platform presented it, before any normalization.
type RawMeeting struct {
	Platform  string
	Instance  string
	Name      string
	Date      string
	Time      string
	Committee string
	// IDSource is the URL whose query parameters carry the platform's
	// native meeting id; empty falls back to the content hash.
	IDSource string
	// RawID is a platform-native id already in hand (JSON APIs);
	// it outranks IDSource.
	RawID string
	Links []linkclass.Candidate
}

// StandardizeOptions carries the context a single RawMeeting can't
// know about itself.
type StandardizeOptions struct {
	// SourceURL is the page the meeting was scraped from; relative
	// document links resolve against it.
	SourceURL string
	Zone      string
	// Place and State override URL-derived values when set.
	Place string
	State string
	// CommitteeOverride wins over the meeting's own committee name.
	CommitteeOverride string
	// RequireDocument drops meetings that classified zero links.
	RequireDocument bool
}

// Standardize converts one raw meeting into zero or more Assets, one
// per classified document link. Meetings that can't be normalized are
// dropped with a logged reason, never guessed at.
func Standardize(ctx context.Context, raw RawMeeting, opts StandardizeOptions) Collection {
	ctx, span := tracer.Start(ctx, "Standardize")
	defer span.End()
	span.SetAttributes(
		attribute.String("platform", raw.Platform),
		attribute.String("meeting", raw.Name),
	)

	name := raw.Name
	if name == "" {
		name = raw.Committee
	}
	if name == "" {
		slog.WarnContext(ctx, "dropping meeting with no name",
			"platform", raw.Platform, "source", opts.SourceURL)
		return nil
	}

	norm, err := dateutil.Normalize(raw.Date, raw.Time, opts.Zone)
	if err != nil {
		var perr *dateutil.ParseError
		if errors.As(err, &perr) {
			slog.WarnContext(ctx, "dropping meeting with unparseable date",
				"platform", raw.Platform, "meeting", name, "date", raw.Date)
		}
		span.RecordError(err)
		return nil
	}

	for i := range raw.Links {
		raw.Links[i].URL = htmlutil.ResolveURL(opts.SourceURL, raw.Links[i].URL)
	}
	links := linkclass.Classify(raw.Links)

	committee := opts.CommitteeOverride
	if committee == "" {
		committee = raw.Committee
	}
	if committee == "" {
		committee = UnknownCommittee
	}

	place, state := opts.Place, opts.State
	if place == "" && state == "" {
		place, state = LocationFromURL(opts.SourceURL)
	}

	id := meetingID(raw, norm)

	var out Collection
	for _, doc := range []struct {
		assetType string
		url       string
	}{
		{"agenda", links.Agenda},
		{"minutes", links.Minutes},
		{"packet", links.Packet},
		{"video", links.Video},
	} {
		if doc.url == "" {
			continue
		}
		out = append(out, Asset{
			URL:             doc.url,
			AssetName:       fmt.Sprintf("%s - %s", name, doc.assetType),
			CommitteeName:   committee,
			Place:           place,
			StateOrProvince: state,
			AssetType:       doc.assetType,
			MeetingDate:     norm.Date,
			MeetingTime:     norm.DateTime(),
			TimeKnown:       norm.TimeKnown,
			MeetingID:       id,
			ScrapedBy:       ScraperVersion,
			ContentLength:   -1,
		})
	}

	if len(out) == 0 && opts.RequireDocument {
		slog.DebugContext(ctx, "dropping meeting with no document links",
			"platform", raw.Platform, "meeting", name)
	}
	return out
}

func meetingID(raw RawMeeting, norm dateutil.Normalized) string {
	if raw.RawID != "" {
		return meetingid.Compose(raw.Platform, raw.Instance, raw.RawID)
	}
	if raw.IDSource != "" {
		if id, ok := meetingid.FromURL(raw.Platform, raw.Instance, raw.IDSource); ok {
			return id
		}
	}
	return meetingid.Hashed(raw.Instance, raw.Name, norm.DateTime().Format(time.RFC3339))
}
