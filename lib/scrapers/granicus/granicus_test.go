package granicus

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"civicscraper/lib/civic"
	"civicscraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func newTestSite(t *testing.T, siteURL, panel string) *Site {
	t.Helper()
	s, err := NewSite(siteURL, Options{PanelName: panel, Timezone: "America/New_York"})
	require.NoError(t, err)
	return s
}

func TestInstanceFromURL(t *testing.T) {
	require.Equal(t, "pittsburgh", instanceFromURL("https://pittsburgh.granicus.com/ViewPublisher.php?view_id=3"))
	require.Equal(t, "marysvilleca", instanceFromURL("https://marysvilleca.granicus.com/ViewPublisher.php?view_id=1"))
}

func TestType1Extraction(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/granicus")()

	s := newTestSite(t, "https://pittsburgh.granicus.com/ViewPublisher.php?view_id=1", "City Council")
	doc := loadDoc(t, "type1.html")

	raw := s.extractType1(context.Background(), doc, "City Council")
	require.Len(t, raw, 3, "both year tabs of the City Council panel, not Planning Commission")

	first := raw[0]
	require.Equal(t, "Regular Council Meeting", first.Name)
	require.Contains(t, first.Date, "January 15, 2024")
	require.Equal(t, "6:30 PM", first.Time)
	require.Contains(t, first.IDSource, "clip_id=4521")
	require.Len(t, first.Links, 3)
}

func TestType4Extraction(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/granicus")()

	s := newTestSite(t, "https://coralsprings.granicus.com/ViewPublisher.php?view_id=3", "City Commission")
	doc := loadDoc(t, "type4.html")

	raw := s.extractType4(context.Background(), doc, "City Commission")
	require.Len(t, raw, 2, "header list item is skipped")

	first := raw[0]
	require.Equal(t, "City Commission Regular Meeting", first.Name)
	require.Equal(t, "6:00 PM", first.Time)
	require.Contains(t, first.IDSource, "clip_id=2210")

	labels := make([]string, len(first.Links))
	for i, l := range first.Links {
		labels[i] = l.Label
	}
	require.ElementsMatch(t, []string{"Agenda", "Packet", "Video"}, labels)
}

func TestCascadeShortCircuit(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/granicus")()

	s := newTestSite(t, "https://marysville.granicus.com/ViewPublisher.php?view_id=1", "City Council")
	doc := loadDoc(t, "type2.html")

	// the type2 page must not satisfy type1
	require.Empty(t, s.extractType1(context.Background(), doc, "City Council"))

	assets, attempted := s.cascade(context.Background(), doc)
	require.Equal(t, []string{"type1", "type2"}, attempted,
		"cascade stops at type2; type4 and type3 are never invoked")
	require.NotEmpty(t, assets)

	// both years of the City Council panel, agenda+minutes for the
	// first meeting and agenda-only for the second
	urls := assets.URLs()
	require.Contains(t, strings.Join(urls, " "), "clip_id=981")
	require.Contains(t, strings.Join(urls, " "), "clip_id=870")
	for _, a := range assets {
		require.Equal(t, "City Council", a.CommitteeName)
		require.Equal(t, "granicus_marysville_"+lastParam(a.URL), a.MeetingID)
	}
}

func lastParam(url string) string {
	i := strings.LastIndex(url, "clip_id=")
	return url[i+len("clip_id="):]
}

func TestCascadeSkipsPanelStrategiesWithoutPanel(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/granicus")()

	s := newTestSite(t, "https://marysville.granicus.com/ViewPublisher.php?view_id=1", "")
	doc := loadDoc(t, "type2.html")

	assets, attempted := s.cascade(context.Background(), doc)
	require.Equal(t, []string{"type3"}, attempted,
		"panel-requiring layouts are skipped outright, not attempted")

	// the panel-agnostic layout sweeps every committee's table
	require.Contains(t, strings.Join(assets.URLs(), " "), "clip_id=990")
	for _, a := range assets {
		require.Equal(t, civic.UnknownCommittee, a.CommitteeName)
	}
}

func TestScrapeRSS(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/granicus")()

	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Meeting Archive</title>
    <item>
      <title>City Council - Agenda - Jan 15, 2024</title>
      <link>https://pittsburgh.granicus.com/AgendaViewer.php?view_id=3&amp;ID=4521</link>
    </item>
    <item>
      <title>City Council - Minutes - Jan 15, 2024</title>
      <link>https://pittsburgh.granicus.com/MinutesViewer.php?view_id=3&amp;ID=4521</link>
    </item>
    <item>
      <title>Untitled entry</title>
      <link>https://pittsburgh.granicus.com/MediaPlayer.php?ID=9</link>
    </item>
    <item>
      <title>City Council - Agenda - TBD</title>
      <link>https://pittsburgh.granicus.com/AgendaViewer.php?ID=10</link>
    </item>
  </channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/rss+xml")
		fmt.Fprint(w, feed)
	}))
	defer server.Close()

	s := newTestSite(t, server.URL+"/ViewPublisherRSS.php?view_id=3", "")
	got, err := s.Scrape(context.Background(), civic.ScrapeOptions{})
	require.NoError(t, err)

	// malformed title and unparseable date are dropped individually
	require.Len(t, got, 2)

	agenda := got[0]
	require.Equal(t, "City Council", agenda.CommitteeName)
	require.Equal(t, "agenda", agenda.AssetType)
	require.Equal(t, "2024-01-15", agenda.MeetingDate.Format("2006-01-02"))
	require.True(t, strings.HasPrefix(agenda.MeetingID, "granicus_"))
	require.True(t, strings.HasSuffix(agenda.MeetingID, "_4521"))
	require.False(t, agenda.TimeKnown)

	require.Equal(t, "minutes", got[1].AssetType)
}
