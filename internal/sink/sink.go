// Package sink persists newly observed visits to the durable CSV record
// log and mirrors each emission to the operational logger.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vincentbai/visitwatch/internal/models"
)

var header = []string{"timestamp", "browser", "url", "title", "visit_time", "visit_count"}

// Log is the durable record log. Rows sit newest-first directly under the
// header, so every emission rewrites the whole file. That costs O(n) per
// write and buys readers a sorted log without a sort step; acceptable at
// browsing-history volume.
type Log struct {
	path   string
	logger *zap.Logger
	now    func() time.Time
}

func New(path string, logger *zap.Logger) *Log {
	return &Log{path: path, logger: logger, now: time.Now}
}

// Init creates the record log with its header row when it does not exist
// yet. The daemon must not start without a writable record log, so the
// caller treats failure here as fatal.
func (l *Log) Init() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat record log: %w", err)
	}
	return l.rewrite(nil, nil)
}

// Emit announces rec on the operational log and prepends it as the newest
// row of the record log. The two side effects are independently
// best-effort: the announcement always goes out first, and a persistence
// failure is returned so the caller can count it. observedAt is assigned
// here, at the moment of emission.
func (l *Log) Emit(rec models.VisitRecord) error {
	l.logger.Info("new visit",
		zap.String("browser", rec.Browser),
		zap.String("family", string(rec.Family)),
		zap.String("url", rec.URL),
		zap.String("title", rec.Title),
		zap.String("visit_time", rec.VisitTime),
	)

	row := []string{
		l.now().UTC().Format(time.RFC3339),
		rec.Browser,
		rec.URL,
		sanitizeTitle(rec.Title),
		rec.VisitTime,
		"",
	}
	if rec.VisitCount != nil {
		row[5] = strconv.FormatInt(*rec.VisitCount, 10)
	}

	existing, err := l.readRows()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read record log: %w", err)
	}
	if err := l.rewrite(row, existing); err != nil {
		return fmt.Errorf("write record log: %w", err)
	}
	return nil
}

// Record is one row read back from the record log.
type Record struct {
	ObservedAt string `json:"timestamp"`
	Browser    string `json:"browser"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	VisitTime  string `json:"visit_time"`
	VisitCount string `json:"visit_count"`
}

// Records returns the logged rows, newest first. A missing log reads as
// empty.
func (l *Log) Records() ([]Record, error) {
	rows, err := l.readRows()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		if len(r) < len(header) {
			continue
		}
		records = append(records, Record{
			ObservedAt: r[0],
			Browser:    r[1],
			URL:        r[2],
			Title:      r[3],
			VisitTime:  r[4],
			VisitCount: r[5],
		})
	}
	return records, nil
}

// readRows returns the data rows currently on disk, header stripped.
func (l *Log) readRows() ([][]string, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		all = all[1:]
	}
	return all, nil
}

// rewrite replaces the record log with header, optional new row, then the
// existing rows. It writes a sibling temp file and renames it into place
// so a failure mid-write cannot leave a truncated log behind.
func (l *Log) rewrite(newRow []string, existing [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".visitwatch-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	err = w.Write(header)
	if err == nil && newRow != nil {
		err = w.Write(newRow)
	}
	if err == nil {
		err = w.WriteAll(existing) // WriteAll flushes
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// sanitizeTitle keeps one logical record on one physical row: embedded
// quotes are doubled and line breaks collapse to spaces.
func sanitizeTitle(s string) string {
	s = strings.ReplaceAll(s, `"`, `""`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
