// Package legistar scrapes Legistar calendar sites. Event rows are
// keyed by configurable column labels; one Asset is built per event
// and requested document type, but only when the row actually links
// that document.
package legistar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"civicscraper/lib/civic"
	"civicscraper/lib/dateutil"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/meetingid"
	"civicscraper/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.scrapers.legistar")

const platform = "legistar"

// EventInfoKeys are the calendar grid's column labels. Sites rename
// them occasionally, so they are configurable.
type EventInfoKeys struct {
	Name            string
	MeetingDetails  string
	MeetingDate     string
	MeetingTime     string
	MeetingLocation string
}

func defaultEventInfoKeys() EventInfoKeys {
	return EventInfoKeys{
		Name:            "Name",
		MeetingDetails:  "Meeting Details",
		MeetingDate:     "Meeting Date",
		MeetingTime:     "Meeting Time",
		MeetingLocation: "Meeting Location",
	}
}

type Options struct {
	Place    string
	State    string
	Timezone string
	// EventInfoKeys overrides the default column labels when set.
	EventInfoKeys *EventInfoKeys
	// AssetTypes are the document columns turned into Assets;
	// defaults to Agenda and Minutes.
	AssetTypes []string
}

type Site struct {
	url      string
	instance string
	opts     Options
	keys     EventInfoKeys
	client   *resty.Client
}

func NewSite(siteURL string, opts Options) (*Site, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	keys := defaultEventInfoKeys()
	if opts.EventInfoKeys != nil {
		keys = *opts.EventInfoKeys
	}
	if len(opts.AssetTypes) == 0 {
		opts.AssetTypes = []string{"Agenda", "Minutes"}
	}
	client, err := restyutil.NewClient(restyutil.ClientOptions{
		BaseURL:    siteURL,
		TracerName: "scrapers/legistar/http",
	})
	if err != nil {
		return nil, err
	}
	return &Site{
		url:      siteURL,
		instance: strings.Split(u.Hostname(), ".")[0],
		opts:     opts,
		keys:     keys,
		client:   client,
	}, nil
}

func (s *Site) URL() string { return s.url }

var clockText = regexp.MustCompile(`\d{1,2}:\d{2} \w{2}`)

func (s *Site) Scrape(ctx context.Context, opts civic.ScrapeOptions) (civic.Collection, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("url", s.url))

	events, err := (&eventsClient{client: s.client, pageURL: s.url}).events(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list calendar events")
		return nil, err
	}
	slog.InfoContext(ctx, "listed legistar events", "url", s.url, "events", len(events))

	var out civic.Collection
	for _, ev := range events {
		out = append(out, s.assetsFromEvent(ctx, ev, opts)...)
	}
	return out.FilterDateRange(opts.StartDate, opts.EndDate), nil
}

func (s *Site) assetsFromEvent(ctx context.Context, ev event, opts civic.ScrapeOptions) civic.Collection {
	name := ev.text(s.keys.Name)
	if name == "" {
		return nil
	}

	dateText := ev.text(s.keys.MeetingDate)
	timeText := ev.text(s.keys.MeetingTime)
	// non-clock time cells ("Canceled", "Deferred") default the clock
	if !clockText.MatchString(timeText) {
		timeText = ""
	}

	norm, err := dateutil.Normalize(dateText, timeText, s.opts.Timezone)
	if err != nil {
		slog.WarnContext(ctx, "dropping event with unparseable date",
			"event", name, "date", dateText)
		return nil
	}

	id := s.meetingID(ev, name, norm)

	var out civic.Collection
	for _, assetType := range s.opts.AssetTypes {
		// absent document column means this event simply doesn't have
		// that document yet; silent skip
		docURL := ev.url(assetType)
		if docURL == "" {
			continue
		}
		docURL = htmlutil.ResolveURL(s.url, docURL)

		asset := civic.Asset{
			URL:             docURL,
			AssetName:       fmt.Sprintf("%s - %s", name, assetType),
			CommitteeName:   name,
			Place:           s.opts.Place,
			StateOrProvince: s.opts.State,
			AssetType:       civic.MapAssetType(assetType),
			MeetingDate:     norm.Date,
			MeetingTime:     norm.DateTime(),
			TimeKnown:       norm.TimeKnown,
			MeetingID:       id,
			ScrapedBy:       civic.ScraperVersion,
			ContentLength:   -1,
		}
		if opts.Download {
			s.headMetadata(ctx, &asset)
			if opts.Skippable(asset) {
				continue
			}
		}
		out = append(out, asset)
	}
	return out
}

// meetingID prefers the numeric ID from the meeting-details link;
// future events without a details page fall back to the content hash.
func (s *Site) meetingID(ev event, name string, norm dateutil.Normalized) string {
	if detailsURL := ev.url(s.keys.MeetingDetails); detailsURL != "" {
		if id, ok := meetingid.FromURL(platform, s.instance, detailsURL); ok {
			return id
		}
	}
	return meetingid.Hashed(s.instance, name, norm.DateTime().Format("2006-01-02T15:04:05"))
}

func (s *Site) headMetadata(ctx context.Context, asset *civic.Asset) {
	res, err := s.client.R().SetContext(ctx).Head(asset.URL)
	if err != nil || res.StatusCode() >= 400 {
		slog.WarnContext(ctx, "could not determine content metadata",
			"url", asset.URL, "err", err)
		return
	}
	asset.ContentType = res.Header().Get("content-type")
	if cl := res.Header().Get("content-length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			asset.ContentLength = n
		}
	}
}
