// Package granicus scrapes Granicus-hosted meeting archives. One site
// can present its archive as an RSS feed, a responsive list page, or
// one of four legacy DOM layouts; the layouts are tried in a fixed
// order until one yields meetings.
package granicus

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/restyutil"
	"civicscraper/lib/sitecache"
	"civicscraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.scrapers.granicus")

const platform = "granicus"

// granicus archive pages are slow but not 30s-slow; a shorter timeout
// keeps the cascade from stalling on a dead layout probe.
const requestTimeout = time.Second * 20

type Options struct {
	// PanelName selects the committee section on paneled layouts.
	// Layouts that structurally require a panel are skipped when this
	// is empty.
	PanelName string
	Timezone  string
	Cache     *sitecache.Cache
}

type Site struct {
	url      string
	instance string
	opts     Options
	client   *resty.Client
}

func NewSite(siteURL string, opts Options) (*Site, error) {
	client, err := restyutil.NewClient(restyutil.ClientOptions{
		BaseURL:    siteURL,
		Timeout:    requestTimeout,
		TracerName: "scrapers/granicus/http",
	})
	if err != nil {
		return nil, err
	}
	return &Site{
		url:      siteURL,
		instance: instanceFromURL(siteURL),
		opts:     opts,
		client:   client,
	}, nil
}

func (s *Site) URL() string { return s.url }

// instanceFromURL pulls the customer name out of the host, e.g.
// "pittsburgh" from "pittsburgh.granicus.com".
func instanceFromURL(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	for i, label := range labels {
		if label == "granicus" && i > 0 {
			return labels[i-1]
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return ""
}

// strategy is one layout parser. Panel-requiring strategies are
// skipped outright, not attempted, when no panel name is configured.
type strategy struct {
	name          string
	requiresPanel bool
	extract       func(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting
}

func (s *Site) strategies() []strategy {
	return []strategy{
		{"type1", true, s.extractType1},
		{"type2", true, s.extractType2},
		{"type4", true, s.extractType4},
		{"type3", false, s.extractType3},
		{"archive", false, s.extractArchive},
	}
}

func (s *Site) Scrape(ctx context.Context, opts civic.ScrapeOptions) (civic.Collection, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.String("url", s.url))

	if strings.Contains(s.url, "ViewPublisherRSS.php") {
		assets, err := s.scrapeRSS(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rss scrape failed")
			return nil, err
		}
		return assets.FilterDateRange(opts.StartDate, opts.EndDate), nil
	}

	body, err := s.fetchPage(ctx, s.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch archive page")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse archive page")
		return nil, err
	}

	assets, attempted := s.cascade(ctx, doc)
	span.SetAttributes(attribute.StringSlice("strategies_attempted", attempted))
	return assets.FilterDateRange(opts.StartDate, opts.EndDate), nil
}

// cascade tries each layout in order and stops at the first one that
// standardizes into a non-empty collection. The attempted strategy
// names come back for observability.
func (s *Site) cascade(ctx context.Context, doc *goquery.Document) (civic.Collection, []string) {
	var attempted []string
	for _, strat := range s.strategies() {
		if strat.requiresPanel && s.opts.PanelName == "" {
			slog.DebugContext(ctx, "skipping layout that requires a panel name",
				"strategy", strat.name, "url", s.url)
			continue
		}
		attempted = append(attempted, strat.name)

		raw := strat.extract(ctx, doc, s.opts.PanelName)
		if len(raw) == 0 {
			slog.DebugContext(ctx, "layout yielded no meetings",
				"strategy", strat.name, "url", s.url)
			continue
		}

		var out civic.Collection
		for _, m := range raw {
			out = append(out, civic.Standardize(ctx, m, civic.StandardizeOptions{
				SourceURL:         s.url,
				Zone:              s.opts.Timezone,
				CommitteeOverride: s.opts.PanelName,
			})...)
		}
		if len(out) > 0 {
			slog.InfoContext(ctx, "granicus layout matched",
				"strategy", strat.name, "url", s.url, "assets", len(out))
			return out, attempted
		}
	}
	slog.WarnContext(ctx, "no granicus layout matched", "url", s.url)
	return nil, attempted
}

func (s *Site) fetchPage(ctx context.Context, pageURL string) (string, error) {
	if s.opts.Cache != nil {
		cached, err := s.opts.Cache.Get(ctx, pageURL)
		if err == nil {
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

// panelContent locates the CollapsiblePanel section whose header text
// matches panel within scope and returns its content div.
func panelContent(scope *goquery.Selection, panel string) *goquery.Selection {
	var content *goquery.Selection
	scope.Find("div.CollapsiblePanelTab, div.CollapsiblePanelTabNotSelected").
		EachWithBreak(func(_ int, header *goquery.Selection) bool {
			name := panelHeaderText(header)
			if !textutil.EqualNames(name, panel) {
				return true
			}
			c := header.NextFiltered("div.CollapsiblePanelContent")
			if c.Length() == 0 {
				c = header.Parent().Find("div.CollapsiblePanelContent").First()
			}
			if c.Length() > 0 {
				content = c
			}
			return false
		})
	return content
}

// panelHeaderText prefers the text of an inner anchor/heading over the
// whole header, which can carry expand/collapse widgets.
func panelHeaderText(header *goquery.Selection) string {
	inner := header.Find("a, h3, span, div").First()
	if inner.Length() > 0 {
		if t := strings.TrimSpace(inner.Text()); t != "" {
			return t
		}
	}
	return strings.TrimSpace(header.Text())
}
