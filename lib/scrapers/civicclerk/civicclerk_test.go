package civicclerk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"civicscraper/lib/civic"
	"civicscraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const meetingsJSON = `{"items": [
  {"id": 77, "name": "City Council Regular Meeting", "groupName": "City Council",
   "date": "2024-01-15T18:30:00"},
  {"id": 78, "name": "Planning Commission", "groupName": "Planning Commission",
   "date": "not a date at all"}
]}`

const documentsJSON = `[
  {"id": 501, "name": "Agenda", "url": "/files/agenda-77.pdf"},
  {"id": 502, "name": "Agenda Packet", "downloadUrl": "/files/packet-77.pdf"}
]`

func portalPage(apiBase string) string {
	return fmt.Sprintf(`<html><head>
<script>window.APP_CONFIG = {apiUrl: "%s", organizationId: "42"};</script>
</head><body>portal</body></html>`, apiBase)
}

func TestScrapeViaWindowConfig(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/civicclerk")()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, portalPage(server.URL+"/api/v1"))
		case "/api/v1/meetings":
			fmt.Fprint(w, meetingsJSON)
		case "/api/v1/meetings/77/documents":
			fmt.Fprint(w, documentsJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, err := NewSite(server.URL+"/", Options{
		Place: "ranchocordova", State: "ca", Timezone: "America/Los_Angeles",
	})
	require.NoError(t, err)

	got, err := s.Scrape(context.Background(), civic.ScrapeOptions{})
	require.NoError(t, err)

	// meeting 78's date parses with no format, so it emits nothing;
	// meeting 77 classifies an agenda and a packet
	require.Len(t, got, 2)

	byType := map[string]civic.Asset{}
	for _, a := range got {
		byType[a.AssetType] = a
	}

	agenda, ok := byType["agenda"]
	require.True(t, ok)
	require.Equal(t, "City Council", agenda.CommitteeName)
	require.Equal(t, "2024-01-15", agenda.MeetingDate.Format("2006-01-02"))
	require.True(t, agenda.TimeKnown)
	require.Equal(t, 18, agenda.MeetingTime.Hour())
	require.Equal(t, server.URL+"/files/agenda-77.pdf", agenda.URL)
	require.True(t, strings.HasPrefix(agenda.MeetingID, "civicclerk_"))
	require.True(t, strings.HasSuffix(agenda.MeetingID, "_77"))

	packet, ok := byType["packet"]
	require.True(t, ok)
	require.Equal(t, server.URL+"/files/packet-77.pdf", packet.URL)
	require.Equal(t, agenda.MeetingID, packet.MeetingID)
}

func TestScrapeViaProbing(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/civicclerk")()

	probes := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body>no config here</body></html>`)
		case "/api/v1/meetings":
			probes++
			fmt.Fprint(w, `[{"id": 9, "name": "Board Meeting", "date": "2024-03-01"}]`)
		default:
			probes++
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, err := NewSite(server.URL+"/", Options{Timezone: "America/New_York"})
	require.NoError(t, err)

	got, err := s.Scrape(context.Background(), civic.ScrapeOptions{})
	require.NoError(t, err)

	require.LessOrEqual(t, probes, probeBudget)

	// no documents route answers, so the meeting's meta page stands in
	require.Len(t, got, 1)
	require.Equal(t, "agenda", got[0].AssetType)
	require.Equal(t, server.URL+"/meetings/9", got[0].URL)
	require.False(t, got[0].TimeKnown)
	require.True(t, strings.HasSuffix(got[0].MeetingID, "_9"))
}

func TestScrapeDOMFallback(t *testing.T) {
	defer telemetry.SetupForTesting(t, "scrapers/civicclerk")()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			// declared API exists but answers with zero meetings
			fmt.Fprintf(w, `<html><head>
<script>window.APP_CONFIG = {apiUrl: "%s/api"};</script>
</head><body>
<div class="meeting-card" data-meeting-id="mc-1">
  <h3 class="meeting-title">Utilities Board</h3>
  <span class="meeting-date">March 5, 2024</span>
  <a href="/meetings/mc-1">Details</a>
</div>
<div class="meeting-card">
  <h3 class="meeting-title">No Date Here</h3>
  <a href="/meetings/mc-2">Details</a>
</div>
</body></html>`, server.URL)
		case "/api/meetings", "/api/events":
			fmt.Fprint(w, `[]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, err := NewSite(server.URL+"/", Options{Timezone: "America/New_York"})
	require.NoError(t, err)

	got, err := s.Scrape(context.Background(), civic.ScrapeOptions{})
	require.NoError(t, err)

	// card without a date is skipped rather than given a made-up one
	require.Len(t, got, 1)
	require.Equal(t, "Utilities Board", got[0].CommitteeName)
	require.Equal(t, "2024-03-05", got[0].MeetingDate.Format("2006-01-02"))
	require.Equal(t, server.URL+"/meetings/mc-1", got[0].URL)
	require.True(t, strings.HasSuffix(got[0].MeetingID, "_mc-1"))
}

func TestSplitDatetime(t *testing.T) {
	cases := []struct {
		in    string
		date  string
		clock string
	}{
		{"2024-01-15T18:30:00", "2024-01-15", "18:30"},
		{"2024-01-15T00:00:00", "2024-01-15", ""},
		{"2024-01-15", "2024-01-15", ""},
		{"March 5, 2024", "March 5, 2024", ""},
	}
	for _, c := range cases {
		date, clock := splitDatetime(c.in)
		require.Equal(t, c.date, date, c.in)
		require.Equal(t, c.clock, clock, c.in)
	}
}

func TestLooksLikeMeetings(t *testing.T) {
	require.True(t, looksLikeMeetings([]byte(`[{"id": 1, "name": "x"}]`)))
	require.True(t, looksLikeMeetings([]byte(`{"items": [{"id": 1}]}`)))
	require.True(t, looksLikeMeetings([]byte(`{"data": {"meetings": [{"id": 1}]}}`)))
	require.False(t, looksLikeMeetings([]byte(`[]`)))
	require.False(t, looksLikeMeetings([]byte(`{"total": 0}`)))
	require.False(t, looksLikeMeetings([]byte(`<html>`)))
}

func TestDetailCandidatesOrder(t *testing.T) {
	s := &Site{baseURL: "https://demo.api.civicclerk.com"}
	body := []byte(`{
		"documents": [{"id": "10", "name": "Packet"}],
		"attachments": [{"id": "11", "name": "Exhibit A"}],
		"agendaDocuments": [{"id": "12", "name": "Agenda"}],
		"minutesDocuments": [{"id": "13", "name": "Minutes"}]
	}`)

	first := s.detailCandidates(body)
	require.Len(t, first, 4)
	require.Equal(t, "https://demo.api.civicclerk.com/documents/10", first[0].URL)
	require.Empty(t, first[0].Label)
	require.Equal(t, "https://demo.api.civicclerk.com/documents/11", first[1].URL)
	require.Equal(t, "agenda", first[2].Label)
	require.Equal(t, "minutes", first[3].Label)

	// field groups come back in the same order every time
	for i := 0; i < 20; i++ {
		require.Equal(t, first, s.detailCandidates(body))
	}
}
