// Package civicplus scrapes CivicPlus AgendaCenter sites through their
// search endpoint, which returns every agenda and minutes document in
// a date window.
package civicplus

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"civicscraper/lib/civic"
	"civicscraper/lib/dateutil"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/meetingid"
	"civicscraper/lib/restyutil"
	"civicscraper/lib/sitecache"
	"civicscraper/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.scrapers.civicplus")

const platform = "civicplus"

type Options struct {
	// Place and State override the values derived from the site URL.
	Place    string
	State    string
	Timezone string
	Cache    *sitecache.Cache
}

type Site struct {
	url       string
	subdomain string
	place     string
	state     string
	opts      Options
	client    *resty.Client
}

func NewSite(siteURL string, opts Options) (*Site, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	subdomain := strings.Split(u.Hostname(), ".")[0]

	place, state := opts.Place, opts.State
	if place == "" && state == "" {
		place, state = civic.LocationFromURL(siteURL)
	}

	client, err := restyutil.NewClient(restyutil.ClientOptions{
		BaseURL:    siteURL,
		TracerName: "scrapers/civicplus/http",
	})
	if err != nil {
		return nil, err
	}
	return &Site{
		url:       siteURL,
		subdomain: subdomain,
		place:     place,
		state:     state,
		opts:      opts,
		client:    client,
	}, nil
}

func (s *Site) URL() string { return s.url }

func (s *Site) Scrape(ctx context.Context, opts civic.ScrapeOptions) (civic.Collection, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("url", s.url))

	start, end := opts.StartDate, opts.EndDate
	if start.IsZero() {
		start = timezone.Now()
	}
	if end.IsZero() {
		end = timezone.Now()
	}

	body, err := s.search(ctx, start.Format("01/02/2006"), end.Format("01/02/2006"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse search results")
		return nil, err
	}

	rows := parseSearchResults(doc)
	slog.InfoContext(ctx, "parsed civicplus search results",
		"url", s.url, "rows", len(rows))

	var out civic.Collection
	for _, row := range rows {
		asset, ok := s.buildAsset(ctx, row)
		if !ok {
			continue
		}
		out = append(out, asset)
	}
	return out, nil
}

// search hits the AgendaCenter search endpoint:
// /Search/?term=&CIDs=all&startDate=MM/DD/YYYY&endDate=MM/DD/YYYY&...
func (s *Site) search(ctx context.Context, start, end string) (string, error) {
	searchURL := strings.TrimRight(s.url, "/") + "/Search/"
	cacheKey := fmt.Sprintf("%s?startDate=%s&endDate=%s", searchURL, start, end)

	if s.opts.Cache != nil {
		cached, err := s.opts.Cache.Get(ctx, cacheKey)
		if err == nil {
			return string(cached.Contents), nil
		}
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"term":         "",
			"CIDs":         "all",
			"startDate":    start,
			"endDate":      end,
			"dateRange":    "",
			"dateSelector": "",
		}).
		Get(searchURL)
	if err != nil {
		return "", err
	}
	if res.StatusCode() >= 400 {
		return "", fmt.Errorf("search %s: status %d", searchURL, res.StatusCode())
	}

	if s.opts.Cache != nil {
		err = s.opts.Cache.Set(ctx, cacheKey, sitecache.Artifact{
			Contents:    res.Body(),
			ContentType: res.Header().Get("content-type"),
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to cache search results", "err", err)
		}
	}
	return string(res.Body()), nil
}

func (s *Site) buildAsset(ctx context.Context, row rowMetadata) (civic.Asset, bool) {
	norm, err := dateutil.Normalize(row.Date, row.Time, s.opts.Timezone)
	if err != nil {
		slog.WarnContext(ctx, "dropping row with unparseable date",
			"url_path", row.URLPath, "date", row.Date)
		return civic.Asset{}, false
	}

	committee := row.Committee
	if committee == "" {
		committee = civic.UnknownCommittee
	}
	name := row.Title
	if name == "" {
		name = committee
	}

	asset := civic.Asset{
		// document paths resolve against the site root, not the
		// AgendaCenter subtree
		URL:             htmlutil.ResolveURL(strings.Split(s.url, "/Agenda")[0], row.URLPath),
		AssetName:       name,
		CommitteeName:   committee,
		Place:           s.place,
		StateOrProvince: s.state,
		AssetType:       civic.MapAssetType(row.AssetType),
		MeetingDate:     norm.Date,
		MeetingTime:     norm.DateTime(),
		TimeKnown:       norm.TimeKnown,
		MeetingID:       meetingid.Compose(platform, s.subdomain, strings.TrimLeft(row.RawID, "_")),
		ScrapedBy:       civic.ScraperVersion,
		ContentLength:   -1,
	}

	s.headMetadata(ctx, &asset)
	return asset, true
}

// headMetadata fills content type and length from a HEAD request. A
// failed HEAD is partial data, never a dropped asset.
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
