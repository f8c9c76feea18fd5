package htmlutil

import (
	"context"
	"strings"
	"testing"

	"civicscraper/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	defer telemetry.SetupForTesting(t, "htmlutil")()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<ul>
  <li><a href="/AgendaCenter/ViewFile/Agenda/_01152024-1405">  Agenda
    <span>(PDF)</span></a></li>
  <li><a href="https://example.com/minutes">Minutes</a></li>
  <li><a>no target</a></li>
</ul>`))
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), doc.Find("a[href]"))
	require.Len(t, anchors, 2)
	require.Equal(t, "Agenda (PDF)", anchors[0].Name)
	require.Equal(t, "/AgendaCenter/ViewFile/Agenda/_01152024-1405", anchors[0].Href)
	require.Equal(t, "Minutes", anchors[1].Name)
	require.Equal(t, "https://example.com/minutes", anchors[1].Href)
}

func TestResolveURL(t *testing.T) {
	base := "https://pittsburgh.legistar.com/Calendar.aspx"
	require.Equal(t,
		"https://pittsburgh.legistar.com/MeetingDetail.aspx?ID=9001",
		ResolveURL(base, "MeetingDetail.aspx?ID=9001"))
	require.Equal(t,
		"https://example.com/doc.pdf",
		ResolveURL(base, "https://example.com/doc.pdf"))
	require.Empty(t, ResolveURL(base, ""))
}
