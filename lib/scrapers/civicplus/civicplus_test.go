package civicplus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const searchResultsPage = `<html><body>
<div id="searchResults">
  <div class="listing">
    <h2>City Council</h2>
    <table class="listing">
      <tr class="catAgendaRow">
        <td><h4>City Council Regular Meeting</h4> <em>6:30 PM</em></td>
        <td><a href="/AgendaCenter/ViewFile/Agenda/_01152024-1405">Agenda</a></td>
        <td><a href="/AgendaCenter/ViewFile/Minutes/_01152024-1405">Minutes</a></td>
      </tr>
      <tr class="catAgendaRow">
        <td><h4>Budget Workshop</h4></td>
        <td><a href="/AgendaCenter/ViewFile/Agenda/_01222024-1410">Agenda</a></td>
      </tr>
    </table>
  </div>
  <a href="/AgendaCenter/PreviousVersions/123">not a document link</a>
</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchResultsPage))
	require.NoError(t, err)

	rows := parseSearchResults(doc)
	require.Len(t, rows, 3)

	want := rowMetadata{
		URLPath:   "/AgendaCenter/ViewFile/Agenda/_01152024-1405",
		Title:     "City Council Regular Meeting",
		Committee: "City Council",
		AssetType: "Agenda",
		RawID:     "_01152024-1405",
		Date:      "01/15/2024",
		Time:      "6:30 PM",
	}
	require.Empty(t, cmp.Diff(want, rows[0]))

	require.Equal(t, "Minutes", rows[1].AssetType)
	require.Equal(t, "Agenda", rows[2].AssetType)
	require.Equal(t, "01/22/2024", rows[2].Date)
	require.Empty(t, rows[2].Time)
}

func TestScrape(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/civicplus")()

	var searchQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/AgendaCenter/Search"):
			searchQuery = r.URL.RawQuery
			fmt.Fprint(w, searchResultsPage)
		case r.Method == http.MethodHead:
			w.Header().Set("content-type", "application/pdf")
			w.Header().Set("content-length", "2048")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, err := NewSite(server.URL+"/AgendaCenter", Options{
		Place: "pittsburgh", State: "pa",
	})
	require.NoError(t, err)

	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, err := s.Scrape(context.Background(), civic.ScrapeOptions{StartDate: start, EndDate: end})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Contains(t, searchQuery, "CIDs=all")
	require.Contains(t, searchQuery, "startDate=01%2F01%2F2024")

	agenda := got[0]
	require.Equal(t, "agenda", agenda.AssetType)
	require.Equal(t, "2024-01-15", agenda.MeetingDate.Format("2006-01-02"))
	require.True(t, agenda.TimeKnown)
	require.Equal(t, 18, agenda.MeetingTime.Hour())
	require.Equal(t, "City Council", agenda.CommitteeName)
	require.Equal(t, "pittsburgh", agenda.Place)
	require.Equal(t, "pa", agenda.StateOrProvince)
	// leading underscore of the raw id never reaches the meeting id
	require.True(t, strings.HasSuffix(agenda.MeetingID, "_01152024-1405"))
	require.True(t, strings.HasPrefix(agenda.MeetingID, "civicplus_"))
	require.NotContains(t, agenda.MeetingID, "__")
	// document path resolves against the site root
	require.Equal(t, server.URL+"/AgendaCenter/ViewFile/Agenda/_01152024-1405", agenda.URL)

	// HEAD metadata
	require.Equal(t, "application/pdf", agenda.ContentType)
	require.EqualValues(t, 2048, agenda.ContentLength)

	// same meeting id for the minutes of the same meeting
	require.Equal(t, agenda.MeetingID, got[1].MeetingID)
}
