package linkclass

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyByText(t *testing.T) {
	got := Classify([]Candidate{
		{URL: "https://x.example.com/a.pdf", Text: "Agenda"},
		{URL: "https://x.example.com/m.pdf", Text: "Minutes"},
		{URL: "https://x.example.com/v", Text: "Video"},
	})
	require.Equal(t, "https://x.example.com/a.pdf", got.Agenda)
	require.Equal(t, "https://x.example.com/m.pdf", got.Minutes)
	require.Equal(t, "https://x.example.com/v", got.Video)
	require.Empty(t, got.Packet)
}

func TestClassifyPacketBeatsAgenda(t *testing.T) {
	got := Classify([]Candidate{
		{URL: "https://x.example.com/p.pdf", Text: "Agenda Packet"},
	})
	require.Equal(t, "https://x.example.com/p.pdf", got.Packet)
	require.Empty(t, got.Agenda)
}

func TestClassifyLabelBeatsText(t *testing.T) {
	got := Classify([]Candidate{
		{URL: "https://x.example.com/doc", Text: "Download", Label: "Minutes"},
	})
	require.Equal(t, "https://x.example.com/doc", got.Minutes)
}

func TestClassifyByURLPattern(t *testing.T) {
	got := Classify([]Candidate{
		{URL: "https://x.granicus.com/AgendaViewer.php?clip_id=1", Text: "view"},
		{URL: "https://x.granicus.com/MinutesViewer.php?clip_id=1", Text: "view"},
		{URL: "https://x.granicus.com/MediaPlayer.php?clip_id=1", Text: "watch"},
	})
	require.Contains(t, got.Agenda, "AgendaViewer")
	require.Contains(t, got.Minutes, "MinutesViewer")
	require.Contains(t, got.Video, "MediaPlayer")
}

func TestClassifyExclusive(t *testing.T) {
	// one link never fills two roles; first claimant keeps a role
	got := Classify([]Candidate{
		{URL: "https://x.example.com/1.pdf", Text: "Agenda"},
		{URL: "https://x.example.com/2.pdf", Text: "Agenda"},
	})
	require.Equal(t, "https://x.example.com/1.pdf", got.Agenda)
	require.Empty(t, got.Minutes)
	require.Empty(t, got.Packet)
	require.Empty(t, got.Video)
}

func TestClassifyCollision(t *testing.T) {
	// same URL classified as both agenda and minutes: non-viewer URL
	// keeps agenda only
	got := Classify([]Candidate{
		{URL: "https://x.example.com/shared", Text: "Agenda"},
		{URL: "https://x.example.com/shared", Text: "Minutes"},
	})
	require.Equal(t, "https://x.example.com/shared", got.Agenda)
	require.Empty(t, got.Minutes)

	// minutes-viewer URL keeps minutes instead
	got = Classify([]Candidate{
		{URL: "https://x.example.com/MinutesViewer.php?id=1", Text: "Agenda"},
		{URL: "https://x.example.com/MinutesViewer.php?id=1", Text: "Minutes"},
	})
	require.Empty(t, got.Agenda)
	require.Equal(t, "https://x.example.com/MinutesViewer.php?id=1", got.Minutes)
}

func TestClassifyIgnoresEmptyAndUnknown(t *testing.T) {
	got := Classify([]Candidate{
		{URL: "", Text: "Agenda"},
		{URL: "https://x.example.com/other", Text: "Staff Report"},
	})
	require.Equal(t, Result{}, got)
}
