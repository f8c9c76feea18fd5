package granicus

import (
	"context"
	"log/slog"

	"civicscraper/lib/civic"

	"github.com/PuerkitoBio/goquery"
)

// extractType2 handles the layout where the year tabs wrap the
// committee panels: each year's TabbedPanelsContent holds a
// CollapsiblePanel per committee with a listingTable inside.
func (s *Site) extractType2(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting {
	group := doc.Find("div.TabbedPanelsContentGroup").First()
	if group.Length() == 0 {
		// single-year page: the committee panel sits directly on the
		// page; an inner TabbedPanels block would mean type1 instead
		content := panelContent(doc.Selection, panel)
		if content == nil {
			slog.DebugContext(ctx, "panel not found", "layout", "type2", "panel", panel)
			return nil
		}
		if content.Find("div.TabbedPanels").Length() > 0 {
			return nil
		}
		table := content.Find("table.listingTable").First()
		if table.Length() == 0 {
			return nil
		}
		return s.meetingsFromTable(table)
	}

	var out []civic.RawMeeting
	group.ChildrenFiltered("div.TabbedPanelsContent").Each(func(_ int, yearContent *goquery.Selection) {
		content := panelContent(yearContent, panel)
		if content == nil {
			return
		}
		// year tabs nested inside the panel content is the type1
		// signature, not ours
		if content.Find("div.TabbedPanels").Length() > 0 {
			return
		}
		table := content.Find("table.listingTable").First()
		if table.Length() == 0 {
			return
		}
		out = append(out, s.meetingsFromTable(table)...)
	})
	return out
}
