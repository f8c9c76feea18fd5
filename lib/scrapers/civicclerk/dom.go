package civicclerk

import (
	"context"
	"log/slog"
	"strings"

	"civicscraper/lib/civic"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/linkclass"

	"github.com/PuerkitoBio/goquery"
)

// meetingSelectors is the DOM cascade, most specific first. Only the
// first selector that matches anything is used.
var meetingSelectors = []string{
	`.meeting-card, .meeting-row, .event-card, .calendar-item, [data-meeting-id]`,
	`[id*="meeting"], [class*="meeting"], [class*="event"], [data-type="meeting"]`,
	`time, [datetime], [class*="date"]`,
}

// meetingsFromDOM extracts meeting-like elements from a rendered page.
// Elements without a discoverable date or link are skipped: a record
// that can't satisfy the output schema is never padded out.
func (s *Site) meetingsFromDOM(ctx context.Context, pageURL string) []record {
	body, err := s.fetch(ctx, pageURL)
	if err != nil {
		slog.DebugContext(ctx, "dom extraction page fetch failed", "url", pageURL, "err", err)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var elements *goquery.Selection
	for _, selector := range meetingSelectors {
		elements = doc.Find(selector)
		if elements.Length() > 0 {
			break
		}
	}
	if elements == nil || elements.Length() == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []record
	elements.Each(func(_ int, el *goquery.Selection) {
		container := meetingContainer(el)
		rec := record{
			id:        containerID(container),
			name:      firstText(container, `h2, h3, h4, [class*="title"], [class*="name"]`),
			committee: firstText(container, `[class*="committee"], [class*="board"], [class*="group"]`),
			date:      containerDate(container),
		}
		if rec.date == "" || rec.name == "" {
			return
		}

		anchors := htmlutil.GetAnchors(ctx, container.Find("a[href]"))
		if len(anchors) == 0 {
			return
		}
		rec.links = []linkclass.Candidate{{
			URL:   htmlutil.ResolveURL(pageURL, anchors[0].Href),
			Text:  anchors[0].Name,
			Label: civic.MapAssetType("meeting_meta_link"),
		}}

		key := rec.name + "|" + rec.date
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, rec)
	})
	return out
}

// meetingContainer climbs from a matched element to the block that
// plausibly holds the whole meeting entry.
func meetingContainer(el *goquery.Selection) *goquery.Selection {
	node := el
	for i := 0; i < 3; i++ {
		name := goquery.NodeName(node)
		if name == "div" || name == "li" || name == "article" {
			return node
		}
		parent := node.Parent()
		if parent.Length() == 0 {
			break
		}
		node = parent
	}
	return node
}

func containerID(container *goquery.Selection) string {
	if id, ok := container.Attr("data-meeting-id"); ok && id != "" {
		return id
	}
	id, _ := container.Attr("id")
	return id
}

func containerDate(container *goquery.Selection) string {
	el := container.Find(`time, [datetime], [class*="date"], [class*="time"]`).First()
	if el.Length() == 0 {
		return ""
	}
	if dt, ok := el.Attr("datetime"); ok && dt != "" {
		return dt
	}
	return htmlutil.CleanText(el.Text())
}

func firstText(container *goquery.Selection, selector string) string {
	el := container.Find(selector).First()
	if el.Length() == 0 {
		return ""
	}
	return htmlutil.CleanText(el.Text())
}
