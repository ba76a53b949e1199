// Package source reads foreign browser history stores and normalizes
// their rows. The on-disk schemas are fixed external contracts owned by
// the browsers; all epoch and column knowledge lives here.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/vincentbai/visitwatch/internal/models"
)

// DefaultRowCap bounds how much history one extraction considers. Only the
// most recent rows by native timestamp are read.
const DefaultRowCap = 100

const visitTimeLayout = "2006-01-02T15:04:05"

// Adapter extracts the most recent rows from one record store, newest
// first. Implementations never read the store in place; reads go through a
// private snapshot (see withSnapshot).
type Adapter interface {
	Family() models.Family
	Extract(ctx context.Context, path string) ([]models.VisitRecord, error)
}

// ForFamily returns the adapter for a storage schema. There are two
// implementations, not three: chromium and gecko share the flat
// single-table shape and differ only in names and epoch, while webkit
// splits items and visits across a join.
func ForFamily(family models.Family, browser string, rowCap int) (Adapter, error) {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	switch family {
	case models.FamilyChromium:
		return &flatAdapter{
			family:  models.FamilyChromium,
			browser: browser,
			query: fmt.Sprintf(`SELECT url, title, visit_count, last_visit_time
FROM urls
ORDER BY last_visit_time DESC
LIMIT %d`, rowCap),
			toTime: chromiumTime,
		}, nil
	case models.FamilyGecko:
		return &flatAdapter{
			family:  models.FamilyGecko,
			browser: browser,
			query: fmt.Sprintf(`SELECT url, title, visit_count, last_visit_date
FROM moz_places
WHERE last_visit_date IS NOT NULL
ORDER BY last_visit_date DESC
LIMIT %d`, rowCap),
			toTime: geckoTime,
		}, nil
	case models.FamilyWebKit:
		return &webkitAdapter{browser: browser, limit: rowCap}, nil
	default:
		return nil, fmt.Errorf("unknown family: %q", family)
	}
}

const (
	// Chromium timestamps count microseconds since 1601-01-01 UTC.
	windowsEpochOffsetSec = 11644473600
	// WebKit timestamps count seconds since 2001-01-01 UTC.
	appleEpochOffsetSec = 978307200
)

func chromiumTime(raw int64) time.Time {
	return time.UnixMicro(raw - windowsEpochOffsetSec*1_000_000)
}

// geckoTime converts microseconds since the Unix epoch.
func geckoTime(raw int64) time.Time {
	return time.UnixMicro(raw)
}

// flatAdapter covers the schemas that keep everything in one table with
// url, title, visit_count and a single integer timestamp column.
type flatAdapter struct {
	family  models.Family
	browser string
	query   string
	toTime  func(raw int64) time.Time
}

func (a *flatAdapter) Family() models.Family { return a.family }

func (a *flatAdapter) Extract(ctx context.Context, path string) ([]models.VisitRecord, error) {
	var records []models.VisitRecord
	err := withSnapshot(path, func(snap string) error {
		db, err := sql.Open("sqlite", snap)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer db.Close()

		rows, err := db.QueryContext(ctx, a.query)
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				url   string
				title sql.NullString
				count sql.NullInt64
				raw   sql.NullInt64
			)
			if err := rows.Scan(&url, &title, &count, &raw); err != nil {
				return fmt.Errorf("scan history row: %w", err)
			}
			rec := models.VisitRecord{
				Family:  a.family,
				Browser: a.browser,
				URL:     url,
				Title:   title.String,
			}
			if count.Valid {
				n := count.Int64
				rec.VisitCount = &n
			}
			if raw.Valid && raw.Int64 > 0 {
				rec.VisitTime = a.toTime(raw.Int64).UTC().Format(visitTimeLayout)
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// webkitAdapter reads the item/visit join used by Safari. The schema has
// no visit counter and stores fractional seconds.
type webkitAdapter struct {
	browser string
	limit   int
}

func (a *webkitAdapter) Family() models.Family { return models.FamilyWebKit }

func (a *webkitAdapter) Extract(ctx context.Context, path string) ([]models.VisitRecord, error) {
	query := fmt.Sprintf(`SELECT history_items.url, history_visits.title, history_visits.visit_time
FROM history_items
JOIN history_visits ON history_items.id = history_visits.history_item
ORDER BY history_visits.visit_time DESC
LIMIT %d`, a.limit)

	var records []models.VisitRecord
	err := withSnapshot(path, func(snap string) error {
		db, err := sql.Open("sqlite", snap)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer db.Close()

		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				url   string
				title sql.NullString
				raw   sql.NullFloat64
			)
			if err := rows.Scan(&url, &title, &raw); err != nil {
				return fmt.Errorf("scan history row: %w", err)
			}
			rec := models.VisitRecord{
				Family:  models.FamilyWebKit,
				Browser: a.browser,
				URL:     url,
				Title:   title.String,
			}
			if raw.Valid && raw.Float64 > 0 {
				rec.VisitTime = time.Unix(appleEpochOffsetSec+int64(raw.Float64), 0).UTC().Format(visitTimeLayout)
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
