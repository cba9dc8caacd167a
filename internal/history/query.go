package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/huandu/go-sqlbuilder"
	naturaldate "github.com/tj/go-naturaldate"
)

// PlayRecord is one row of preview history
type PlayRecord struct {
	Time        time.Time
	ArchivePath string
	Title       string
	Offset      time.Duration
	Duration    time.Duration
}

// BatchRecord is one row of preload-batch history
type BatchRecord struct {
	Started  time.Time
	Total    int
	Loaded   int
	Failed   int
	FromDisk int
	Elapsed  time.Duration
}

// PlayFilter narrows a history query
type PlayFilter struct {
	Since time.Time // zero means no lower bound
	Title string    // exact match, empty means any
	Limit int       // default 20
}

// ParseSince turns a natural-language expression like "2 days ago" or
// "yesterday" into a point in time relative to now
func ParseSince(expr string, now time.Time) (time.Time, error) {
	parsed, err := naturaldate.Parse(expr, now, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time expression %q: %w", expr, err)
	}
	return parsed, nil
}

// RecentPlays returns preview plays matching the filter, newest first
func RecentPlays(db *sql.DB, filter PlayFilter) ([]PlayRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("timestamp", "archive_path", "title", "offset_ms", "duration_ms").
		From("preview_plays")
	if !filter.Since.IsZero() {
		sb.Where(sb.GE("timestamp", filter.Since.Unix()))
	}
	if filter.Title != "" {
		sb.Where(sb.Equal("title", filter.Title))
	}
	sb.OrderBy("timestamp").Desc().Limit(limit)

	query, args := sb.Build()
	slog.Debug("history query", "sql", query, "args", args)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query preview plays: %w", err)
	}
	defer rows.Close()

	var records []PlayRecord
	for rows.Next() {
		var ts, offsetMs, durationMs int64
		var rec PlayRecord
		if err := rows.Scan(&ts, &rec.ArchivePath, &rec.Title, &offsetMs, &durationMs); err != nil {
			return nil, fmt.Errorf("scan preview play row: %w", err)
		}
		rec.Time = time.Unix(ts, 0)
		rec.Offset = time.Duration(offsetMs) * time.Millisecond
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecentBatches returns preload batch outcomes, newest first
func RecentBatches(db *sql.DB, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("started_at", "total", "loaded", "failed", "from_disk", "elapsed_ms").
		From("preload_batches").
		OrderBy("started_at").Desc().
		Limit(limit)

	query, args := sb.Build()
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query preload batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var started, elapsedMs int64
		var rec BatchRecord
		if err := rows.Scan(&started, &rec.Total, &rec.Loaded, &rec.Failed, &rec.FromDisk, &elapsedMs); err != nil {
			return nil, fmt.Errorf("scan preload batch row: %w", err)
		}
		rec.Started = time.Unix(started, 0)
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}
