package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"civicscraper/lib/civic"
	"civicscraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryPlatforms(t *testing.T) {
	registry := DefaultRegistry(RegistryConfig{})

	cases := []struct {
		url      string
		platform string
	}{
		{"https://ca-cupertino.civicplus.com/AgendaCenter", "civicplus"},
		{"https://www.example.gov/AgendaCenter", "civicplus"},
		{"https://pittsburgh.granicus.com/ViewPublisher.php?view_id=2", "granicus"},
		{"https://go.boarddocs.com/pa/stco/board.nsf/Public", "boarddocs"},
		{"https://chicago.legistar.com/Calendar.aspx", "legistar"},
		{"https://ranchocordova.portal.civicclerk.com/", "civicclerk"},
	}
	for _, c := range cases {
		platform, err := registry.Platform(c.url)
		require.NoError(t, err, c.url)
		require.Equal(t, c.platform, platform, c.url)
	}

	_, err := registry.Platform("https://www.example.gov/meetings")
	require.ErrorIs(t, err, civic.ErrUnsupportedSite)
}

const searchResultsPage = `<html><body>
<div id="searchResults"><div class="listing">
  <h2>City Council</h2>
  <table class="listing"><tr>
    <td><h4>Regular Meeting</h4></td>
    <td><a href="/AgendaCenter/ViewFile/Agenda/_01152024-1405">Agenda</a></td>
  </tr></table>
</div></div>
</body></html>`

func TestScrapeBatchIsolatesFailures(t *testing.T) {
	defer telemetry.SetupForTesting(t, "runner")()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/AgendaCenter/Search"):
			fmt.Fprint(w, searchResultsPage)
		case strings.Contains(r.URL.RawQuery, "granicus"):
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	r, err := New(Options{Timezone: "America/New_York"})
	require.NoError(t, err)
	defer r.Close()

	urls := []string{
		server.URL + "/AgendaCenter",
		server.URL + "/broken?vendor=granicus",
	}
	got, reports, err := r.Scrape(context.Background(), urls, civic.ScrapeOptions{})
	require.NoError(t, err)

	require.Len(t, reports, 2)
	require.Equal(t, "civicplus", reports[0].Platform)
	require.NoError(t, reports[0].Err)
	require.Equal(t, 1, reports[0].Assets)
	require.Equal(t, "granicus", reports[1].Platform)
	require.Error(t, reports[1].Err)

	// the failing site contributes nothing; the healthy one still lands
	require.Len(t, got, 1)
	require.Equal(t, "agenda", got[0].AssetType)
}

func TestScrapeBatchRejectsUnsupportedSite(t *testing.T) {
	defer telemetry.SetupForTesting(t, "runner")()

	r, err := New(Options{})
	require.NoError(t, err)
	defer r.Close()

	_, _, err = r.Scrape(context.Background(),
		[]string{"https://www.example.gov/meetings"}, civic.ScrapeOptions{})
	require.True(t, errors.Is(err, civic.ErrUnsupportedSite))
}
