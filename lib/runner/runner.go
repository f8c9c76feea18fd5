// Package runner is the batch facade: it resolves each site URL to a
// platform scraper, runs the scrapes sequentially, and unions the
// results. One failing site logs and is reported; it never aborts the
// rest of the batch.
package runner

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/scrapers/boarddocs"
	"civicscraper/lib/scrapers/civicclerk"
	"civicscraper/lib/scrapers/civicplus"
	"civicscraper/lib/scrapers/granicus"
	"civicscraper/lib/scrapers/legistar"
	"civicscraper/lib/sitecache"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("civicscraper.lib.runner")

// cacheTTL bounds how long cached page artifacts stay valid.
const cacheTTL = 24 * time.Hour

type Options struct {
	// CacheDir enables persistence of intermediate page artifacts.
	// Empty runs without a cache.
	CacheDir string
	Timezone string
	// Registry overrides the default platform registry when set.
	Registry *civic.Registry
}

// SiteReport is the per-site outcome of one batch run.
type SiteReport struct {
	URL      string
	Platform string
	Assets   int
	Err      error
}

type Runner struct {
	registry *civic.Registry
	cache    *sitecache.Cache
	opts     Options
}

func New(opts Options) (*Runner, error) {
	var cache *sitecache.Cache
	if opts.CacheDir != "" {
		var err error
		cache, err = sitecache.Open(opts.CacheDir, cacheTTL)
		if err != nil {
			return nil, err
		}
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry(RegistryConfig{Timezone: opts.Timezone, Cache: cache})
	}
	return &Runner{registry: registry, cache: cache, opts: opts}, nil
}

func (r *Runner) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// Scrape runs the batch. An unsupported URL fails the whole call
// before any scraping starts, since it is a configuration mistake
// rather than a transient site failure.
func (r *Runner) Scrape(ctx context.Context, siteURLs []string, opts civic.ScrapeOptions) (civic.Collection, []SiteReport, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(attribute.Int("sites", len(siteURLs)))

	scrapers := make([]civic.SiteScraper, 0, len(siteURLs))
	platforms := make([]string, 0, len(siteURLs))
	for _, siteURL := range siteURLs {
		platform, err := r.registry.Platform(siteURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unsupported site in batch")
			return nil, nil, err
		}
		s, err := r.registry.Lookup(siteURL)
		if err != nil {
			span.RecordError(err)
			return nil, nil, err
		}
		scrapers = append(scrapers, s)
		platforms = append(platforms, platform)
	}

	slog.InfoContext(ctx, "starting batch scrape", "sites", len(siteURLs))

	var all civic.Collection
	reports := make([]SiteReport, 0, len(scrapers))
	for i, s := range scrapers {
		report := SiteReport{URL: s.URL(), Platform: platforms[i]}

		assets, err := s.Scrape(ctx, opts)
		if err != nil {
			slog.WarnContext(ctx, "site scrape failed, continuing batch",
				"url", s.URL(), "platform", report.Platform, "err", err)
			report.Err = err
		} else {
			report.Assets = len(assets)
			all = append(all, assets...)
		}
		reports = append(reports, report)
	}

	slog.InfoContext(ctx, "batch scrape finished",
		"sites", len(scrapers), "assets", len(all))
	return all, reports, nil
}

// RegistryConfig carries the cross-site settings every factory needs.
type RegistryConfig struct {
	Timezone string
	Cache    *sitecache.Cache
}

// DefaultRegistry wires the five platform scrapers behind their URL
// patterns. Order matters: the CivicPlus rule also claims generic
// AgendaCenter URLs, so it goes first.
func DefaultRegistry(cfg RegistryConfig) *civic.Registry {
	registry := &civic.Registry{}

	registry.Register("civicplus", containsAny("civicplus", "agendacenter"),
		func(siteURL string) (civic.SiteScraper, error) {
			return civicplus.NewSite(siteURL, civicplus.Options{
				Timezone: cfg.Timezone,
				Cache:    cfg.Cache,
			})
		})

	registry.Register("granicus", containsAny("granicus"),
		func(siteURL string) (civic.SiteScraper, error) {
			return granicus.NewSite(siteURL, granicus.Options{
				Timezone: cfg.Timezone,
				Cache:    cfg.Cache,
			})
		})

	registry.Register("boarddocs", containsAny("boarddocs"),
		func(siteURL string) (civic.SiteScraper, error) {
			return boarddocs.NewSite(siteURL, boarddocs.Options{
				Timezone: cfg.Timezone,
				Cache:    cfg.Cache,
			})
		})

	registry.Register("legistar", containsAny("legistar"),
		func(siteURL string) (civic.SiteScraper, error) {
			return legistar.NewSite(siteURL, legistar.Options{
				Timezone: cfg.Timezone,
			})
		})

	registry.Register("civicclerk", containsAny("civicclerk"),
		func(siteURL string) (civic.SiteScraper, error) {
			return civicclerk.NewSite(siteURL, civicclerk.Options{
				Timezone: cfg.Timezone,
				Cache:    cfg.Cache,
			})
		})

	return registry
}

func containsAny(fragments ...string) func(url string) bool {
	return func(url string) bool {
		lower := strings.ToLower(url)
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				return true
			}
		}
		return false
	}
}
