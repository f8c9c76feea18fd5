package civic

import (
	"context"
	"time"
)

// ScrapeOptions is passed to every platform scraper. The zero value
// means "everything": no date bounds, no type filter, no downloads.
type ScrapeOptions struct {
	StartDate time.Time
	EndDate   time.Time
	// Download fetches content metadata for matching documents after
	// the listing pass.
	Download bool
	// AssetList restricts downloads to these standardized types;
	// empty means all types.
	AssetList []string
	// MaxFileSizeMB skips downloads larger than this many megabytes.
	// Zero means unlimited. Assets whose size the server never
	// reported are always kept.
	MaxFileSizeMB float64
}

const bytesPerMB = 1048576

// Skippable reports whether the download filters exclude this asset.
// Metadata is always emitted; this only gates the download pass.
func (o ScrapeOptions) Skippable(a Asset) bool {
	if len(o.AssetList) > 0 {
		found := false
		for _, t := range o.AssetList {
			if a.AssetType == t {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	// unknown size never triggers the size filter
	if o.MaxFileSizeMB > 0 && a.ContentLength >= 0 &&
		float64(a.ContentLength) > o.MaxFileSizeMB*bytesPerMB {
		return true
	}
	return false
}

// SiteScraper is implemented once per platform. Scrape never returns a
// partial-page error: records that fail standardization are dropped
// individually and the rest of the page still comes back.
type SiteScraper interface {
	// URL reports the site page this scraper was constructed for.
	URL() string
	Scrape(ctx context.Context, opts ScrapeOptions) (Collection, error)
}
