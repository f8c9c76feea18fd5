package granicus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicscraper/lib/civic"
	"civicscraper/lib/dateutil"
	"civicscraper/lib/meetingid"

	"github.com/mmcdole/gofeed"
)

// scrapeRSS parses a ViewPublisherRSS.php feed. Entry titles follow
// the convention "Committee - AssetType - Datetime"; entries whose
// title doesn't split into three parts or whose datetime doesn't parse
// are dropped individually.
func (s *Site) scrapeRSS(ctx context.Context) (civic.Collection, error) {
	body, err := s.fetchPage(ctx, s.url)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse rss feed: %w", err)
	}

	var out civic.Collection
	for _, entry := range feed.Items {
		asset, ok := s.assetFromFeedItem(ctx, entry)
		if !ok {
			continue
		}
		out = append(out, asset)
	}
	slog.InfoContext(ctx, "parsed granicus rss feed",
		"url", s.url, "entries", len(feed.Items), "assets", len(out))
	return out, nil
}

func (s *Site) assetFromFeedItem(ctx context.Context, entry *gofeed.Item) (civic.Asset, bool) {
	parts := strings.Split(entry.Title, " - ")
	if len(parts) < 3 {
		slog.DebugContext(ctx, "rss title does not follow committee - type - datetime",
			"title", entry.Title)
		return civic.Asset{}, false
	}
	committee := strings.TrimSpace(parts[0])
	assetType := civic.MapAssetType(parts[1])
	datetime := strings.TrimSpace(strings.Join(parts[2:], " - "))

	norm, err := dateutil.Normalize(datetime, "", s.opts.Timezone)
	if err != nil {
		slog.WarnContext(ctx, "dropping rss entry with unparseable date",
			"title", entry.Title, "date", datetime)
		return civic.Asset{}, false
	}
	if entry.Link == "" {
		return civic.Asset{}, false
	}

	id, ok := meetingid.FromURL(platform, s.instance, entry.Link)
	if !ok {
		id = meetingid.Hashed(s.instance, committee, norm.DateTime().Format(time.RFC3339))
	}

	var contentLength int64 = -1
	var contentType string
	if len(entry.Enclosures) > 0 {
		contentType = entry.Enclosures[0].Type
		if n, err := parseLength(entry.Enclosures[0].Length); err == nil {
			contentLength = n
		}
	}

	return civic.Asset{
		URL:           entry.Link,
		AssetName:     entry.Title,
		CommitteeName: committee,
		AssetType:     assetType,
		MeetingDate:   norm.Date,
		MeetingTime:   norm.DateTime(),
		TimeKnown:     norm.TimeKnown,
		MeetingID:     id,
		ScrapedBy:     civic.ScraperVersion,
		ContentType:   contentType,
		ContentLength: contentLength,
	}, true
}

func parseLength(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
