package civic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSkippableComposition(t *testing.T) {
	opts := ScrapeOptions{
		AssetList:     []string{"agenda"},
		MaxFileSizeMB: 5,
	}

	// matching type with unknown size is never filtered
	require.False(t, opts.Skippable(Asset{AssetType: "agenda", ContentLength: -1}))
	// matching type under the cap
	require.False(t, opts.Skippable(Asset{AssetType: "agenda", ContentLength: 4 * bytesPerMB}))
	// matching type over the cap
	require.True(t, opts.Skippable(Asset{AssetType: "agenda", ContentLength: 6 * bytesPerMB}))
	// wrong type, regardless of size
	require.True(t, opts.Skippable(Asset{AssetType: "minutes", ContentLength: 1024}))
}

func TestSkippableZeroValue(t *testing.T) {
	var opts ScrapeOptions
	require.False(t, opts.Skippable(Asset{AssetType: "video", ContentLength: 1 << 40}))
}

func TestFilterDateRange(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
	}
	c := Collection{
		{URL: "a", MeetingDate: day(1)},
		{URL: "b", MeetingDate: day(10)},
		{URL: "c", MeetingDate: day(20)},
	}

	got := c.FilterDateRange(day(5), day(15))
	require.Equal(t, []string{"b"}, got.URLs())

	got = c.FilterDateRange(time.Time{}, day(15))
	require.Equal(t, []string{"a", "b"}, got.URLs())

	got = c.FilterDateRange(time.Time{}, time.Time{})
	require.Len(t, got, 3)
}

func TestLocationFromURL(t *testing.T) {
	place, state := LocationFromURL("https://pa-pittsburgh.civicplus.com/AgendaCenter")
	require.Equal(t, "pittsburgh", place)
	require.Equal(t, "pa", state)

	place, state = LocationFromURL("https://boston.granicus.com/x")
	require.Empty(t, place)
	require.Empty(t, state)
}
