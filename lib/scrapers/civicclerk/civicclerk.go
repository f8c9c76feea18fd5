// Package civicclerk scrapes CivicClerk portals. CivicClerk never
// documents its API, so a scrape starts with a discovery waterfall
// (window config, JS bundles, conventional-path probing, template
// construction) and falls back to DOM extraction when the API route
// fails entirely.
package civicclerk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/linkclass"
	"civicscraper/lib/restyutil"
	"civicscraper/lib/sitecache"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.scrapers.civicclerk")

const platform = "civicclerk"

type Options struct {
	Place    string
	State    string
	Timezone string
	Cache    *sitecache.Cache
}

type Site struct {
	url     string
	baseURL string
	// tenant is the customer name from the host, e.g. "ranchocordova"
	// from "ranchocordova.portal.civicclerk.com".
	tenant   string
	isPortal bool
	orgID    string
	opts     Options
	client   *resty.Client
}

func NewSite(siteURL string, opts Options) (*Site, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	client, err := restyutil.NewClient(restyutil.ClientOptions{
		BaseURL:    siteURL,
		TracerName: "scrapers/civicclerk/http",
	})
	if err != nil {
		return nil, err
	}
	labels := strings.Split(u.Hostname(), ".")
	return &Site{
		url:      siteURL,
		baseURL:  u.Scheme + "://" + u.Host,
		tenant:   labels[0],
		isPortal: len(labels) >= 3 && labels[1] == "portal",
		opts:     opts,
		client:   client,
	}, nil
}

func (s *Site) URL() string { return s.url }

// record is one meeting as the API or DOM produced it. Loosely typed:
// every field except the candidate links may be missing.
type record struct {
	id        string
	name      string
	date      string
	committee string
	links     []linkclass.Candidate
}

// dateFields is the priority order of datetime fields seen across API
// tenants.
var dateFields = []string{"date", "dateTime", "startTime", "startDate", "meetingDate", "datetime"}

func (s *Site) Scrape(ctx context.Context, opts civic.ScrapeOptions) (civic.Collection, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("url", s.url))

	eps, err := s.discover(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "endpoint discovery failed")
		return nil, err
	}

	records, source := s.listMeetings(ctx, eps)
	span.SetAttributes(
		attribute.String("meeting_source", source),
		attribute.Int("meetings", len(records)),
	)
	if len(records) == 0 {
		slog.WarnContext(ctx, "no meetings found by any strategy", "url", s.url)
		return nil, nil
	}

	var out civic.Collection
	for _, rec := range records {
		if rec.links == nil && source == "api" {
			rec.links = s.documents(ctx, eps, rec.id)
		}
		if rec.committee == "" {
			rec.committee = rec.name
		}
		date, clock := splitDatetime(rec.date)
		out = append(out, civic.Standardize(ctx, civic.RawMeeting{
			Platform:  platform,
			Instance:  s.tenant,
			Name:      rec.name,
			Date:      date,
			Time:      clock,
			Committee: rec.committee,
			RawID:     rec.id,
			Links:     rec.links,
		}, civic.StandardizeOptions{
			SourceURL: s.url,
			Zone:      s.opts.Timezone,
			Place:     s.opts.Place,
			State:     s.opts.State,
		})...)
	}
	return out.FilterDateRange(opts.StartDate, opts.EndDate), nil
}

// listMeetings runs the meeting-listing waterfall: API endpoint, then
// DOM extraction, then the /calendar page. Each stage runs only when
// the prior one produced zero records.
func (s *Site) listMeetings(ctx context.Context, eps endpoints) ([]record, string) {
	if records := s.meetingsFromAPI(ctx, eps); len(records) > 0 {
		return records, "api"
	}
	if records := s.meetingsFromDOM(ctx, s.url); len(records) > 0 {
		return records, "dom"
	}
	if records := s.meetingsFromDOM(ctx, s.baseURL+"/calendar"); len(records) > 0 {
		return records, "calendar"
	}
	return nil, "none"
}

func (s *Site) meetingsFromAPI(ctx context.Context, eps endpoints) []record {
	for _, endpoint := range []string{eps.meetings, eps.events} {
		if endpoint == "" {
			continue
		}
		body, err := s.fetchJSON(ctx, endpoint)
		if err != nil {
			slog.DebugContext(ctx, "meetings endpoint failed", "endpoint", endpoint, "err", err)
			continue
		}
		raws := unwrapList(body)
		if len(raws) == 0 {
			continue
		}

		var out []record
		for _, raw := range raws {
			rec := record{
				id:        stringField(raw, "id"),
				name:      stringField(raw, "name", "title"),
				committee: stringField(raw, "groupName", "committeeName"),
			}
			for _, f := range dateFields {
				if v := stringField(raw, f); v != "" {
					rec.date = v
					break
				}
			}
			if rec.id == "" {
				slog.WarnContext(ctx, "skipping api meeting without id", "name", rec.name)
				continue
			}
			out = append(out, rec)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// documents lists a meeting's document links, trying the conventional
// nested routes before falling back to the meeting's own meta page.
func (s *Site) documents(ctx context.Context, eps endpoints, meetingID string) []linkclass.Candidate {
	if eps.meetings != "" {
		routes := []string{
			eps.meetings + "/" + meetingID + "/documents",
			eps.meetings + "/" + meetingID + "/attachments",
		}
		if eps.documents != "" {
			routes = append(routes, eps.documents+"?meetingId="+meetingID)
		}
		for _, route := range routes {
			body, err := s.fetchJSON(ctx, route)
			if err != nil {
				continue
			}
			if candidates := s.documentCandidates(body); len(candidates) > 0 {
				return candidates
			}
		}

		// some tenants only embed documents in the meeting details
		if body, err := s.fetchJSON(ctx, eps.meetings+"/"+meetingID); err == nil {
			if candidates := s.detailCandidates(body); len(candidates) > 0 {
				return candidates
			}
		}
	}

	// last resort: the meeting's meta page stands in for its agenda
	return []linkclass.Candidate{{
		URL:   s.baseURL + "/meetings/" + meetingID,
		Text:  "Meeting Information",
		Label: civic.MapAssetType("meeting_meta_link"),
	}}
}

var docURLFields = []string{"url", "downloadUrl", "fileUrl", "path", "link"}

func (s *Site) documentCandidates(body []byte) []linkclass.Candidate {
	var out []linkclass.Candidate
	for _, doc := range unwrapList(body) {
		name := stringField(doc, "name", "fileName", "title")
		docURL := ""
		for _, f := range docURLFields {
			if v := stringField(doc, f); v != "" {
				docURL = htmlutil.ResolveURL(s.baseURL, v)
				break
			}
		}
		if docURL == "" {
			if id := stringField(doc, "id"); id != "" {
				docURL = s.baseURL + "/documents/" + id
			}
		}
		if docURL == "" {
			continue
		}
		out = append(out, linkclass.Candidate{URL: docURL, Text: name})
	}
	return out
}

// detailCandidates pulls document lists out of a meeting-details
// response. The field name tells us the role when the document's own
// name doesn't.
func (s *Site) detailCandidates(body []byte) []linkclass.Candidate {
	var details map[string]any
	if err := json.Unmarshal(body, &details); err != nil {
		return nil
	}
	var out []linkclass.Candidate
	// fixed order so the first classifier claimant is stable across runs
	for _, group := range []struct {
		field string
		label string
	}{
		{"documents", ""},
		{"attachments", ""},
		{"agendaDocuments", "agenda"},
		{"minutesDocuments", "minutes"},
	} {
		list, ok := details[group.field].([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			doc, ok := item.(map[string]any)
			if !ok {
				continue
			}
			raw, _ := json.Marshal([]any{doc})
			for _, c := range s.documentCandidates(raw) {
				c.Label = group.label
				out = append(out, c)
			}
		}
	}
	return out
}

func (s *Site) fetch(ctx context.Context, pageURL string) (string, error) {
	if s.opts.Cache != nil {
		if cached, err := s.opts.Cache.Get(ctx, pageURL); err == nil {
			return string(cached.Contents), nil
		}
	}

	res, err := s.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return "", err
	}
	if res.StatusCode() >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, res.StatusCode())
	}

	if s.opts.Cache != nil {
		err = s.opts.Cache.Set(ctx, pageURL, sitecache.Artifact{
			Contents:    res.Body(),
			ContentType: res.Header().Get("content-type"),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to cache page", "url", pageURL, "err", err)
		}
	}
	return string(res.Body()), nil
}

func (s *Site) fetchJSON(ctx context.Context, endpoint string) ([]byte, error) {
	res, err := s.client.R().SetContext(ctx).
		SetQueryParams(probeParams).
		SetHeader("Accept", "application/json").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		Get(endpoint)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("fetch %s: status %d", endpoint, res.StatusCode())
	}
	return res.Body(), nil
}

// unwrapList peels the wrapper shapes CivicClerk tenants answer with:
// a bare list, or items/meetings/data envelopes, including data as a
// nested object holding meetings.
func unwrapList(body []byte) []map[string]any {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}

	var list []any
	switch v := data.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, key := range []string{"items", "meetings", "documents", "attachments", "data", "events"} {
			switch inner := v[key].(type) {
			case []any:
				list = inner
			case map[string]any:
				if nested, ok := inner["meetings"].([]any); ok {
					list = nested
				}
			}
			if list != nil {
				break
			}
		}
	}

	var out []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// isoLayouts are the datetime shapes CivicClerk APIs answer with.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
}

// splitDatetime breaks an API datetime into separate date and clock
// strings. Non-ISO values pass through unchanged for the general
// normalizer to handle. A midnight clock is treated as date-only,
// since the APIs use it as a placeholder.
func splitDatetime(s string) (date, clock string) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if t.Hour() == 0 && t.Minute() == 0 {
			return t.Format("2006-01-02"), ""
		}
		return t.Format("2006-01-02"), t.Format("15:04")
	}
	return trimmed, ""
}

// stringField returns the first present field rendered as a string.
// JSON numeric ids come back without a trailing ".0".
func stringField(m map[string]any, fields ...string) string {
	for _, f := range fields {
		v, present := m[f]
		if !present || v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		s = strings.TrimSuffix(s, ".0")
		if s != "" {
			return s
		}
	}
	return ""
}
