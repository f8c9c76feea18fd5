package granicus

import (
	"context"

	"civicscraper/lib/civic"

	"github.com/PuerkitoBio/goquery"
)

// extractArchive handles the modern responsive archive page: table-row
// list items directly on the page with no committee panels. Last in
// the cascade because its selectors are generic enough to half-match
// the paneled layouts.
func (s *Site) extractArchive(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting {
	// paneled pages belong to the earlier layouts
	if doc.Find("div.CollapsiblePanel, div.CollapsiblePanelTab").Length() > 0 {
		return nil
	}

	var out []civic.RawMeeting
	doc.Find("li.table-row").Each(func(_ int, item *goquery.Selection) {
		if m, ok := s.meetingFromListItem(item); ok {
			out = append(out, m)
		}
	})
	return out
}
