package assetstore

import (
	"context"
	"database/sql"
	"time"

	"civicscraper/lib/civic"

	_ "modernc.org/sqlite"
)

// Schema creates the assets table. Exported so callers holding their
// own database handle can apply it before wrapping with FromDB.
const Schema = `
CREATE TABLE IF NOT EXISTS assets (
	meeting_id        TEXT NOT NULL,
	asset_type        TEXT NOT NULL,
	url               TEXT NOT NULL,
	asset_name        TEXT NOT NULL,
	committee_name    TEXT NOT NULL,
	place             TEXT NOT NULL,
	state_or_province TEXT NOT NULL,
	meeting_date      TEXT NOT NULL,
	meeting_time      TEXT NOT NULL,
	scraped_by        TEXT NOT NULL,
	content_type      TEXT NOT NULL,
	content_length    INTEGER NOT NULL,
	scraped_at        INTEGER NOT NULL,
	PRIMARY KEY (meeting_id, asset_type, url)
);
`

// Store keeps assets across runs, keyed on (meeting_id, asset_type,
// url) so re-scrapes update rather than duplicate.
type Store struct {
	db *sql.DB
}

func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, err
	}
	return Store{db: db}, nil
}

// FromDB wraps an existing database handle that already has Schema
// applied. The caller keeps ownership of the handle.
func FromDB(db *sql.DB) Store {
	return Store{db: db}
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Upsert(ctx context.Context, assets civic.Collection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (
			meeting_id, asset_type, url, asset_name, committee_name,
			place, state_or_province, meeting_date, meeting_time,
			scraped_by, content_type, content_length, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (meeting_id, asset_type, url) DO UPDATE SET
			asset_name = excluded.asset_name,
			committee_name = excluded.committee_name,
			content_type = excluded.content_type,
			content_length = excluded.content_length,
			scraped_at = excluded.scraped_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, a := range assets {
		meetingTime := ""
		if a.TimeKnown {
			meetingTime = a.MeetingTime.Format("15:04:05")
		}
		_, err = stmt.ExecContext(ctx,
			a.MeetingID, a.AssetType, a.URL, a.AssetName, a.CommitteeName,
			a.Place, a.StateOrProvince, a.MeetingDate.Format("2006-01-02"),
			meetingTime, a.ScrapedBy, a.ContentType, a.ContentLength, now,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ByMeeting returns every stored asset for one meeting id.
func (s Store) ByMeeting(ctx context.Context, meetingID string) (civic.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT meeting_id, asset_type, url, asset_name, committee_name,
			place, state_or_province, meeting_date, meeting_time,
			scraped_by, content_type, content_length
		FROM assets WHERE meeting_id = ?
		ORDER BY asset_type, url
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out civic.Collection
	for rows.Next() {
		var a civic.Asset
		var meetingDate, meetingTime string
		err = rows.Scan(
			&a.MeetingID, &a.AssetType, &a.URL, &a.AssetName, &a.CommitteeName,
			&a.Place, &a.StateOrProvince, &meetingDate, &meetingTime,
			&a.ScrapedBy, &a.ContentType, &a.ContentLength,
		)
		if err != nil {
			return nil, err
		}
		a.MeetingDate, err = time.Parse("2006-01-02", meetingDate)
		if err != nil {
			return nil, err
		}
		if meetingTime != "" {
			clock, err := time.Parse("15:04:05", meetingTime)
			if err != nil {
				return nil, err
			}
			a.MeetingTime = time.Date(
				a.MeetingDate.Year(), a.MeetingDate.Month(), a.MeetingDate.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, a.MeetingDate.Location(),
			)
			a.TimeKnown = true
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count reports the number of stored assets.
func (s Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n)
	return n, err
}
