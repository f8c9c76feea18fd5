package granicus

import (
	"context"
	"log/slog"

	"civicscraper/lib/civic"

	"github.com/PuerkitoBio/goquery"
)

// extractType4 handles the layout with type2's nesting (year tabs
// wrapping committee panels) where meetings render as responsive-table
// list items instead of a <table>.
func (s *Site) extractType4(ctx context.Context, doc *goquery.Document, panel string) []civic.RawMeeting {
	group := doc.Find("div.TabbedPanelsContentGroup").First()
	if group.Length() == 0 {
		return s.type4Panel(ctx, doc.Selection, panel)
	}

	var out []civic.RawMeeting
	group.ChildrenFiltered("div.TabbedPanelsContent").Each(func(_ int, yearContent *goquery.Selection) {
		out = append(out, s.type4Panel(ctx, yearContent, panel)...)
	})
	return out
}

func (s *Site) type4Panel(ctx context.Context, scope *goquery.Selection, panel string) []civic.RawMeeting {
	content := panelContent(scope, panel)
	if content == nil {
		slog.DebugContext(ctx, "panel not found", "layout", "type4", "panel", panel)
		return nil
	}

	list := content.Find("ol.responsive-table, ul.responsive-table").First()
	if list.Length() == 0 {
		list = content.Find("div.responsive-table").Find("ol, ul").First()
	}
	if list.Length() == 0 {
		return nil
	}

	items := list.Find("li.table-row")
	if items.Length() == 0 {
		items = list.ChildrenFiltered("li")
	}

	var out []civic.RawMeeting
	items.Each(func(_ int, item *goquery.Selection) {
		if m, ok := s.meetingFromListItem(item); ok {
			out = append(out, m)
		}
	})
	return out
}
