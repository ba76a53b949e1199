package source

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visitwatch/internal/models"
)

// 2024-01-01T00:00:00Z in the epochs the fixtures use.
const (
	baseUnixSec    = int64(1704067200)
	baseChromium   = (baseUnixSec + windowsEpochOffsetSec) * 1_000_000
	baseGeckoMicro = baseUnixSec * 1_000_000
	baseWebKitSec  = float64(baseUnixSec - appleEpochOffsetSec)
)

func openFixture(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// createChromiumStore writes a History file with n rows. Row i has URL
// https://example.com/i and is i seconds newer than the base time.
func createChromiumStore(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "History")
	db := openFixture(t, path)

	_, err := db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY,
		url TEXT,
		title TEXT,
		visit_count INTEGER,
		last_visit_time INTEGER
	)`)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		_, err := db.Exec(
			`INSERT INTO urls (url, title, visit_count, last_visit_time) VALUES (?, ?, ?, ?)`,
			fmt.Sprintf("https://example.com/%d", i),
			fmt.Sprintf("Page %d", i),
			i+1,
			baseChromium+int64(i)*1_000_000,
		)
		require.NoError(t, err)
	}
	return path
}

func TestChromiumExtract(t *testing.T) {
	path := createChromiumStore(t, t.TempDir(), 3)

	adapter, err := ForFamily(models.FamilyChromium, "Chrome", DefaultRowCap)
	require.NoError(t, err)

	records, err := adapter.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	newest := records[0]
	assert.Equal(t, "https://example.com/2", newest.URL)
	assert.Equal(t, "Page 2", newest.Title)
	assert.Equal(t, models.FamilyChromium, newest.Family)
	assert.Equal(t, "Chrome", newest.Browser)
	require.NotNil(t, newest.VisitCount)
	assert.Equal(t, int64(3), *newest.VisitCount)
	assert.Equal(t, "2024-01-01T00:00:02", newest.VisitTime)

	assert.Equal(t, "https://example.com/0", records[2].URL)
	assert.Equal(t, "2024-01-01T00:00:00", records[2].VisitTime)
}

func TestRowCapKeepsMostRecent(t *testing.T) {
	path := createChromiumStore(t, t.TempDir(), 150)

	adapter, err := ForFamily(models.FamilyChromium, "Chrome", 100)
	require.NoError(t, err)

	records, err := adapter.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 100)

	// Exactly the 100 most recent by native timestamp: rows 149 down to 50.
	assert.Equal(t, "https://example.com/149", records[0].URL)
	assert.Equal(t, "https://example.com/50", records[99].URL)
}

func TestGeckoExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.sqlite")
	db := openFixture(t, path)

	_, err := db.Exec(`CREATE TABLE moz_places (
		id INTEGER PRIMARY KEY,
		url TEXT,
		title TEXT,
		visit_count INTEGER,
		last_visit_date INTEGER
	)`)
	require.NoError(t, err)

	_, err = db.Exec(
		`INSERT INTO moz_places (url, title, visit_count, last_visit_date) VALUES
		 ('https://golang.org/', 'The Go Programming Language', 7, ?),
		 ('https://news.ycombinator.com/', 'Hacker News', 2, ?),
		 ('https://never-visited.example/', 'Bookmarked only', 0, NULL)`,
		baseGeckoMicro+60_000_000, baseGeckoMicro,
	)
	require.NoError(t, err)

	adapter, err := ForFamily(models.FamilyGecko, "Firefox", DefaultRowCap)
	require.NoError(t, err)

	records, err := adapter.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2, "rows without a visit date are excluded")

	assert.Equal(t, "https://golang.org/", records[0].URL)
	assert.Equal(t, "2024-01-01T00:01:00", records[0].VisitTime)
	require.NotNil(t, records[0].VisitCount)
	assert.Equal(t, int64(7), *records[0].VisitCount)
	assert.Equal(t, "https://news.ycombinator.com/", records[1].URL)
}

func TestWebKitExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "History.db")
	db := openFixture(t, path)

	_, err := db.Exec(`CREATE TABLE history_items (
		id INTEGER PRIMARY KEY,
		url TEXT
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE history_visits (
		id INTEGER PRIMARY KEY,
		history_item INTEGER,
		title TEXT,
		visit_time REAL
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO history_items (id, url) VALUES
		(1, 'https://apple.example/'),
		(2, 'https://untitled.example/')`)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO history_visits (history_item, title, visit_time) VALUES
		 (1, 'Apple Example', ?),
		 (2, NULL, ?)`,
		baseWebKitSec+30.5, baseWebKitSec,
	)
	require.NoError(t, err)

	adapter, err := ForFamily(models.FamilyWebKit, "Safari", DefaultRowCap)
	require.NoError(t, err)

	records, err := adapter.Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "https://apple.example/", records[0].URL)
	assert.Equal(t, "Apple Example", records[0].Title)
	assert.Equal(t, "2024-01-01T00:00:30", records[0].VisitTime)
	assert.Nil(t, records[0].VisitCount, "webkit schema has no visit counter")

	assert.Equal(t, "https://untitled.example/", records[1].URL)
	assert.Equal(t, "", records[1].Title)
}

func TestExtractMissingStore(t *testing.T) {
	adapter, err := ForFamily(models.FamilyChromium, "Chrome", DefaultRowCap)
	require.NoError(t, err)

	_, err = adapter.Extract(context.Background(), filepath.Join(t.TempDir(), "History"))
	assert.Error(t, err)
}

func TestExtractCorruptStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "History")
	require.NoError(t, writeFile(path, "this is not a sqlite database"))

	adapter, err := ForFamily(models.FamilyChromium, "Chrome", DefaultRowCap)
	require.NoError(t, err)

	_, err = adapter.Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestForFamilyUnknown(t *testing.T) {
	_, err := ForFamily(models.Family("mosaic"), "Mosaic", DefaultRowCap)
	assert.Error(t, err)
}
