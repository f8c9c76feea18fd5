package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"civicscraper/lib/assetstore"
	"civicscraper/lib/civic"
	"civicscraper/lib/configutil"
	"civicscraper/lib/runner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// SitesConfig is the json5 sites file: the target URLs plus shared
// scrape settings. A <name>.local.json5 next to it overrides fields.
type SitesConfig struct {
	Timezone string   `json:"timezone"`
	Urls     []string `json:"urls"`
}

var scrapeFlags struct {
	startDate  string
	endDate    string
	download   bool
	cache      bool
	cacheDir   string
	fileSize   float64
	assetTypes []string
	urls       []string
	sitesFile  string
	timezone   string
	output     string
	db         string
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVarP(&scrapeFlags.startDate, "start-date", "s", "", "Scrape meetings starting from this date (YYYY-MM-DD).")
	f.StringVarP(&scrapeFlags.endDate, "end-date", "e", "", "Scrape meetings up to and including this date (YYYY-MM-DD).")
	f.BoolVarP(&scrapeFlags.download, "download", "d", false, "Probe document metadata and apply the download filters.")
	f.BoolVarP(&scrapeFlags.cache, "cache", "c", false, "Cache intermediate page artifacts such as scraped HTML.")
	f.StringVar(&scrapeFlags.cacheDir, "cache-dir", ".civicscraper/artifacts", "Where cached page artifacts live.")
	f.Float64VarP(&scrapeFlags.fileSize, "file-size", "f", 0, "Maximum file size in megabytes for downloaded assets.")
	f.StringArrayVarP(&scrapeFlags.assetTypes, "asset-type", "a", nil, "Restrict downloads to these standardized asset types.")
	f.StringArrayVar(&scrapeFlags.urls, "url", nil, "Base URL of a site to scrape. Repeatable.")
	f.StringVar(&scrapeFlags.sitesFile, "sites-file", "", "json5 file listing target site urls.")
	f.StringVar(&scrapeFlags.timezone, "timezone", "", "IANA zone meeting times are interpreted in.")
	f.StringVarP(&scrapeFlags.output, "output", "o", "assets_meta.csv", "Metadata CSV output path.")
	f.StringVar(&scrapeFlags.db, "db", "", "Optional sqlite database to upsert results into.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--url <site> | --sites-file <sites.json5>]",
	Short: "Scrape government meeting sites for links to agendas, minutes and other documents.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		urls := scrapeFlags.urls
		timezone := scrapeFlags.timezone
		if scrapeFlags.sitesFile != "" {
			cfg, err := configutil.ReadConfig[SitesConfig](scrapeFlags.sitesFile)
			if err != nil {
				return fmt.Errorf("read sites file: %w", err)
			}
			urls = append(urls, cfg.Urls...)
			if timezone == "" {
				timezone = cfg.Timezone
			}
		}
		if len(urls) == 0 {
			return fmt.Errorf("no sites given: pass --url or --sites-file")
		}

		opts, err := scrapeOptions()
		if err != nil {
			return err
		}

		cacheDir := ""
		if scrapeFlags.cache {
			cacheDir = scrapeFlags.cacheDir
		}
		r, err := runner.New(runner.Options{
			CacheDir: cacheDir,
			Timezone: timezone,
		})
		if err != nil {
			return err
		}
		defer r.Close()

		assets, reports, err := r.Scrape(ctx, urls, opts)
		if err != nil {
			return err
		}

		if err := writeCSV(scrapeFlags.output, assets); err != nil {
			return err
		}
		slog.InfoContext(ctx, "wrote asset metadata", "path", scrapeFlags.output)

		if scrapeFlags.db != "" {
			store, err := assetstore.Open(scrapeFlags.db)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Upsert(ctx, assets); err != nil {
				return err
			}
			slog.InfoContext(ctx, "upserted assets", "db", scrapeFlags.db)
		}

		printSummary(reports, len(assets))
		return nil
	},
}

func scrapeOptions() (civic.ScrapeOptions, error) {
	opts := civic.ScrapeOptions{
		Download:      scrapeFlags.download,
		MaxFileSizeMB: scrapeFlags.fileSize,
		AssetList:     scrapeFlags.assetTypes,
	}
	var err error
	if scrapeFlags.startDate != "" {
		opts.StartDate, err = time.Parse("2006-01-02", scrapeFlags.startDate)
		if err != nil {
			return opts, fmt.Errorf("bad --start-date: %w", err)
		}
	}
	if scrapeFlags.endDate != "" {
		opts.EndDate, err = time.Parse("2006-01-02", scrapeFlags.endDate)
		if err != nil {
			return opts, fmt.Errorf("bad --end-date: %w", err)
		}
	}
	return opts, nil
}

func writeCSV(path string, assets civic.Collection) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return assetstore.WriteCSV(out, assets)
}

func printSummary(reports []runner.SiteReport, total int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Site", "Platform", "Assets", "Error"})
	for _, r := range reports {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		t.AppendRow(table.Row{r.URL, r.Platform, r.Assets, errText})
	}
	t.AppendFooter(table.Row{"", "total", total, ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
