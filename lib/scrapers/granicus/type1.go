package granicus

import (
	"context"
	"log/slog"

	"civicscraper/lib/civic"

	"github.com/PuerkitoBio/goquery"
)

// extractType1 handles the layout where year tabs sit INSIDE the
// committee panel's content: each committee has its own TabbedPanels
// block with one listingTable per year.
func (s *Site) extractType1(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting {
	content := panelContent(doc.Selection, panel)
	if content == nil {
		slog.DebugContext(ctx, "panel not found", "layout", "type1", "panel", panel)
		return nil
	}

	tabbed := content.Find("div.TabbedPanels").First()
	if tabbed.Length() == 0 {
		// page-level year tabs around the panels mean the type2
		// nesting; this layout must bow out so the cascade reaches it
		if doc.Find("div.TabbedPanelsContentGroup").Length() > 0 {
			return nil
		}
		// no year tabs anywhere: a single table directly in the panel
		// content still counts
		table := content.Find("table.listingTable").First()
		if table.Length() == 0 {
			return nil
		}
		return s.meetingsFromTable(table)
	}

	var out []civic.RawMeeting
	yearContents := tabbed.Find("div.TabbedPanelsContentGroup > div.TabbedPanelsContent")
	if yearContents.Length() == 0 {
		// TabbedPanels wrapper without year groups; one table inside
		table := tabbed.Find("table.listingTable").First()
		if table.Length() == 0 {
			return nil
		}
		return s.meetingsFromTable(table)
	}

	yearContents.Each(func(_ int, yearContent *goquery.Selection) {
		table := yearContent.Find("table.listingTable").First()
		if table.Length() == 0 {
			return
		}
		out = append(out, s.meetingsFromTable(table)...)
	})
	return out
}
