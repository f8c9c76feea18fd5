package civicplus

import (
	"fmt"
	"regexp"
	"strings"

	"civicscraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// viewFilePath matches AgendaCenter document links. The trailing
// segment encodes the meeting: _MMDDYYYY-NNN.
var viewFilePath = regexp.MustCompile(`/AgendaCenter/ViewFile/(\w+)/(_?(\d{2})(\d{2})(\d{4})-\d+)`)

var rowTime = regexp.MustCompile(`(\d{1,2}:\d{2}\s*(?:AM|PM|am|pm))`)

// rowMetadata is one document link found on the search results page.
type rowMetadata struct {
	URLPath   string
	Title     string
	Committee string
	AssetType string
	// RawID is the _MMDDYYYY-NNN meeting segment from the link path.
	RawID string
	// Date is MM/DD/YYYY, decoded from the link path.
	Date string
	Time string
}

// parseSearchResults walks every AgendaCenter document link on the
// page. The meeting date lives in the link path itself, which is more
// reliable than the surrounding prose.
func parseSearchResults(doc *goquery.Document) []rowMetadata {
	var out []rowMetadata
	seen := map[string]bool{}

	doc.Find(`a[href*="/AgendaCenter/ViewFile/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := viewFilePath.FindStringSubmatch(href)
		if m == nil {
			return
		}
		if seen[href] {
			return
		}
		seen[href] = true

		row := rowMetadata{
			URLPath:   href,
			AssetType: m[1],
			RawID:     m[2],
			Date:      fmt.Sprintf("%s/%s/%s", m[3], m[4], m[5]),
		}

		row.Title = htmlutil.CleanText(a.Text())
		if row.Title == "" || strings.EqualFold(row.Title, row.AssetType) {
			// generic anchor text; the row heading names the meeting
			if h := a.Closest("tr, li, div.catAgendaRow").Find("h4, strong").First(); h.Length() > 0 {
				row.Title = htmlutil.CleanText(h.Text())
			}
		}

		container := a.Closest("tr, li, div.catAgendaRow")
		if container.Length() > 0 {
			if t := rowTime.FindString(container.Text()); t != "" {
				row.Time = t
			}
		}

		// committee sections are headed by an h2 on the listing div
		for _, scope := range []string{"div.listing", "div#searchResults"} {
			listing := a.Closest(scope)
			if listing.Length() == 0 {
				continue
			}
			if h2 := listing.Find("h2").First(); h2.Length() > 0 {
				row.Committee = htmlutil.CleanText(h2.Text())
				break
			}
		}

		out = append(out, row)
	})
	return out
}
