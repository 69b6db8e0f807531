// Package status summarises service activity from its logfmt log file.
package status

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Messages written by the pipeline that status counts.
const (
	MsgScreenshotProcessed  = "screenshot processed"
	MsgExplanationPublished = "explanation published"
)

// Stats holds parsed statistics from the log file.
type Stats struct {
	ScreenshotsProcessed int
	Explanations         int
	Errors               int
	LastProcessed        *ProcessedFile
}

// ProcessedFile holds information about the last processed screenshot.
type ProcessedFile struct {
	Timestamp time.Time
	Path      string
}

// record is one decoded log line.
type record struct {
	time  time.Time
	level string
	msg   string
	path  string
}

// StartOfToday returns local midnight.
func StartOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ParseToday parses the log file and counts only today's records.
func ParseToday(path string) (*Stats, error) {
	return ParseLogFile(path, StartOfToday())
}

// ParseLogFile parses a log file and returns statistics for records at or
// after since. A zero since counts everything. Returns empty stats if the
// file doesn't exist.
func ParseLogFile(path string, since time.Time) (*Stats, error) {
	stats := &Stats{}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		rec, ok := parseLine(scanner.Bytes())
		if !ok {
			continue
		}
		if !since.IsZero() && (rec.time.IsZero() || rec.time.Before(since)) {
			continue
		}

		switch rec.msg {
		case MsgScreenshotProcessed:
			stats.ScreenshotsProcessed++
			stats.LastProcessed = &ProcessedFile{Timestamp: rec.time, Path: rec.path}
		case MsgExplanationPublished:
			stats.Explanations++
		}
		if rec.level == "error" {
			stats.Errors++
		}
	}

	return stats, scanner.Err()
}

// parseLine decodes a single logfmt line. Malformed lines are reported as
// not ok and skipped by the caller.
func parseLine(line []byte) (record, bool) {
	var rec record
	dec := logfmt.NewDecoder(bytes.NewReader(line))
	if !dec.ScanRecord() {
		return rec, false
	}
	for dec.ScanKeyval() {
		val := string(dec.Value())
		switch string(dec.Key()) {
		case "time":
			if ts, err := time.Parse(time.RFC3339, val); err == nil {
				rec.time = ts
			}
		case "level":
			rec.level = strings.ToLower(val)
		case "msg":
			rec.msg = val
		case "path":
			rec.path = val
		}
	}
	if dec.Err() != nil {
		return rec, false
	}
	return rec, true
}

// FormatTimestamp formats a timestamp for display.
func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05")
}

// BaseName returns just the filename from a path.
func BaseName(path string) string {
	return filepath.Base(strings.TrimSuffix(path, "/"))
}
