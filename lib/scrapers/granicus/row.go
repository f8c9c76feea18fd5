package granicus

import (
	"regexp"

	"civicscraper/lib/civic"
	"civicscraper/lib/htmlutil"
	"civicscraper/lib/linkclass"

	"github.com/PuerkitoBio/goquery"
)

var (
	rowIDParam   = regexp.MustCompile(`(?i)[?&](?:clip_id|event_id|meeting_id|item_id)=(\d+)`)
	embeddedTime = regexp.MustCompile(`(\d{1,2}:\d{2}\s*(?:AM|PM|am|pm)?)`)
)

// meetingFromTableRow turns one listingTable <tr> into a raw meeting.
// Column convention: name in cell 0, date in cell 1, document links
// anywhere in the row. Returns ok=false for header or malformed rows.
func (s *Site) meetingFromTableRow(row *goquery.Selection) (civic.RawMeeting, bool) {
	cells := row.Find("td")
	if cells.Length() < 2 {
		return civic.RawMeeting{}, false
	}

	name := htmlutil.CleanText(cells.Eq(0).Text())
	date := htmlutil.CleanText(cells.Eq(1).Text())
	if name == "" || date == "" {
		return civic.RawMeeting{}, false
	}

	raw := civic.RawMeeting{
		Platform: platform,
		Instance: s.instance,
		Name:     name,
		Date:     date,
	}
	raw.Links, raw.IDSource = s.collectRowLinks(row)

	// some sites put the clock in the name or date cell instead of a
	// column of its own
	if m := embeddedTime.FindString(name + " " + date); m != "" {
		raw.Time = m
	}
	return raw, true
}

// collectRowLinks gathers every anchor in the row as a classifier
// candidate, and notes the first href carrying a numeric meeting id.
func (s *Site) collectRowLinks(row *goquery.Selection) ([]linkclass.Candidate, string) {
	var links []linkclass.Candidate
	idSource := ""
	row.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		links = append(links, linkclass.Candidate{
			URL:  href,
			Text: htmlutil.CleanText(a.Text()),
		})
		if idSource == "" && rowIDParam.MatchString(href) {
			idSource = href
		}
	})
	return links, idSource
}

// meetingFromListItem handles the responsive-table layout where each
// meeting is an <li class="table-row"> with labelled divs instead of
// table cells.
func (s *Site) meetingFromListItem(item *goquery.Selection) (civic.RawMeeting, bool) {
	if item.HasClass("table-row--head") {
		return civic.RawMeeting{}, false
	}

	name := htmlutil.CleanText(item.Find("div.archive-name").First().Text())
	if name == "" {
		name = htmlutil.CleanText(item.Find(`div[data-label="Name"], div[data-label="Event"]`).First().Text())
	}
	date := htmlutil.CleanText(item.Find("div.archive-date").First().Text())
	if date == "" {
		date = htmlutil.CleanText(item.Find(`div[data-label="Date"]`).First().Text())
	}
	if name == "" || date == "" {
		return civic.RawMeeting{}, false
	}

	raw := civic.RawMeeting{
		Platform: platform,
		Instance: s.instance,
		Name:     name,
		Date:     date,
	}

	// labelled wrapper divs are more reliable than anchor text here
	for _, section := range []struct {
		class string
		label string
	}{
		{"div.archive-agenda", "Agenda"},
		{"div.archive-packet", "Packet"},
		{"div.archive-minutes", "Minutes"},
		{"div.archive-video", "Video"},
		{"div.archive-media", "Video"},
	} {
		item.Find(section.class).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if href == "" {
				return true
			}
			raw.Links = append(raw.Links, linkclass.Candidate{
				URL:   href,
				Text:  htmlutil.CleanText(a.Text()),
				Label: section.label,
			})
			if raw.IDSource == "" && rowIDParam.MatchString(href) {
				raw.IDSource = href
			}
			return false
		})
	}
	if len(raw.Links) == 0 {
		raw.Links, raw.IDSource = s.collectRowLinks(item)
	}

	if m := embeddedTime.FindString(date); m != "" {
		raw.Time = m
	}
	return raw, true
}

// meetingsFromTable extracts every listing row of one table.
func (s *Site) meetingsFromTable(table *goquery.Selection) []civic.RawMeeting {
	var out []civic.RawMeeting
	rows := table.Find("tr.listingRow, tr.listingRowAlt, tr.even, tr.odd")
	if rows.Length() == 0 {
		rows = table.Find("tbody tr")
	}
	if rows.Length() == 0 {
		rows = table.Find("tr")
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		if m, ok := s.meetingFromTableRow(row); ok {
			out = append(out, m)
		}
	})
	return out
}
