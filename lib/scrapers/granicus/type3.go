package granicus

import (
	"context"

	"civicscraper/lib/civic"

	"github.com/PuerkitoBio/goquery"
)

// extractType3 handles pages without committee panels at all: listing
// tables sit directly on the page, optionally under page-wide year
// tabs. The panel name is metadata only here, never a filter.
func (s *Site) extractType3(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting {
	scope := doc.Selection
	if container := doc.Find("div.TabbedPanels").First(); container.Length() > 0 {
		scope = container
	}

	tables := scope.Find("table.listingTable")
	if tables.Length() == 0 {
		tables = scope.Find("table#pastEvents, table#upcomingEvents")
	}
	if tables.Length() == 0 {
		return nil
	}

	var out []civic.RawMeeting
	tables.Each(func(_ int, table *goquery.Selection) {
		out = append(out, s.meetingsFromTable(table)...)
	})
	return out
}
