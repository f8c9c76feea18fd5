package civic

import (
	"context"
	"testing"

	"civicscraper/lib/linkclass"
	"civicscraper/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStandardize(t *testing.T) {
	defer telemetry.SetupForTesting(t, "lib/civic")()

	raw := RawMeeting{
		Platform:  "granicus",
		Instance:  "pittsburgh",
		Name:      "City Council",
		Date:      "January 15, 2024",
		Time:      "6:30 PM",
		Committee: "City Council",
		IDSource:  "https://pittsburgh.granicus.com/AgendaViewer.php?clip_id=4521",
		Links: []linkclass.Candidate{
			{URL: "/AgendaViewer.php?clip_id=4521", Text: "Agenda"},
			{URL: "/MinutesViewer.php?clip_id=4521", Text: "Minutes"},
		},
	}
	got := Standardize(context.Background(), raw, StandardizeOptions{
		SourceURL: "https://pittsburgh.granicus.com/ViewPublisher.php?view_id=3",
	})
	require.Len(t, got, 2)

	agenda := got[0]
	require.Equal(t, "agenda", agenda.AssetType)
	require.Equal(t, "https://pittsburgh.granicus.com/AgendaViewer.php?clip_id=4521", agenda.URL)
	require.Equal(t, "granicus_pittsburgh_4521", agenda.MeetingID)
	require.Equal(t, "City Council", agenda.CommitteeName)
	require.Equal(t, "2024-01-15", agenda.MeetingDate.Format("2006-01-02"))
	require.True(t, agenda.TimeKnown)
	require.Equal(t, 18, agenda.MeetingTime.Hour())
	require.Equal(t, ScraperVersion, agenda.ScrapedBy)
	require.NoError(t, agenda.Validate())

	require.Equal(t, "minutes", got[1].AssetType)
	require.Equal(t, agenda.MeetingID, got[1].MeetingID)
}

func TestStandardizeNeverFabricatesDate(t *testing.T) {
	defer telemetry.SetupForTesting(t, "lib/civic")()

	raw := RawMeeting{
		Platform: "civicclerk",
		Instance: "nashville",
		Name:     "Planning Commission",
		Date:     "TBD",
		Links: []linkclass.Candidate{
			{URL: "https://x.example.com/a.pdf", Text: "Agenda"},
		},
	}
	got := Standardize(context.Background(), raw, StandardizeOptions{})
	require.Empty(t, got, "an unparseable date must drop the record, not default to today")
}

func TestStandardizeDropsNameless(t *testing.T) {
	defer telemetry.SetupForTesting(t, "lib/civic")()

	got := Standardize(context.Background(), RawMeeting{
		Platform: "granicus",
		Date:     "January 15, 2024",
	}, StandardizeOptions{})
	require.Empty(t, got)
}

func TestStandardizeHashedIDFallback(t *testing.T) {
	defer telemetry.SetupForTesting(t, "lib/civic")()

	raw := RawMeeting{
		Platform: "boarddocs",
		Instance: "ohsd",
		Name:     "Board Meeting",
		Date:     "2024-02-01",
		Links: []linkclass.Candidate{
			{URL: "https://go.boarddocs.com/oh/ohsd/Board.nsf/agenda", Text: "Agenda"},
		},
	}
	a := Standardize(context.Background(), raw, StandardizeOptions{})
	b := Standardize(context.Background(), raw, StandardizeOptions{})
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, a[0].MeetingID, b[0].MeetingID, "hashed ids are deterministic")
	require.Len(t, a[0].MeetingID, 16)
}

func TestStandardizeLocationFromURL(t *testing.T) {
	defer telemetry.SetupForTesting(t, "lib/civic")()

	raw := RawMeeting{
		Platform: "civicplus",
		Instance: "pa-pittsburgh",
		Name:     "Council",
		Date:     "2024-02-01",
		Links: []linkclass.Candidate{
			{URL: "/Agenda/02012024.pdf", Text: "Agenda"},
		},
	}
	got := Standardize(context.Background(), raw, StandardizeOptions{
		SourceURL: "https://pa-pittsburgh.civicplus.com/AgendaCenter",
	})
	require.Len(t, got, 1)
	require.Equal(t, "pittsburgh", got[0].Place)
	require.Equal(t, "pa", got[0].StateOrProvince)
	require.Equal(t, UnknownCommittee, got[0].CommitteeName)
	require.Equal(t, "https://pa-pittsburgh.civicplus.com/Agenda/02012024.pdf", got[0].URL)
}
