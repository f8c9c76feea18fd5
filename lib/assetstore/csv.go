// Package assetstore persists scraped metadata: a CSV writer for the
// one-shot export and a sqlite store for cross-run deduplication.
package assetstore

import (
	"encoding/csv"
	"io"
	"strconv"

	"civicscraper/lib/civic"
)

var csvHeader = []string{
	"url",
	"asset_name",
	"committee_name",
	"place",
	"state_or_province",
	"asset_type",
	"meeting_date",
	"meeting_time",
	"meeting_id",
	"scraped_by",
	"content_type",
	"content_length",
}

// WriteCSV writes the collection as one row per asset. Unknown
// content length and unknown meeting time serialize as empty cells.
func WriteCSV(w io.Writer, c civic.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range c {
		meetingTime := ""
		if a.TimeKnown {
			meetingTime = a.MeetingTime.Format("15:04:05")
		}
		contentLength := ""
		if a.ContentLength >= 0 {
			contentLength = strconv.FormatInt(a.ContentLength, 10)
		}
		err := cw.Write([]string{
			a.URL,
			a.AssetName,
			a.CommitteeName,
			a.Place,
			a.StateOrProvince,
			a.AssetType,
			a.MeetingDate.Format("2006-01-02"),
			meetingTime,
			a.MeetingID,
			a.ScrapedBy,
			a.ContentType,
			contentLength,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
