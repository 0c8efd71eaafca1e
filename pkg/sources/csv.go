package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

// CSVSource reads an exported sensor log from a local file.
//
// The first row is a header. A "timestamp" (or "ts") column is required;
// every other header is matched against the sensor column names and unknown
// headers are skipped, so exports carrying extra columns load cleanly.
// Timestamps parse as RFC3339 or Unix seconds; empty and malformed readings
// become missing values.
//
// A CSV file is a complete historical export, so Load ignores the window.
type CSVSource struct {
	Path string
}

func (c *CSVSource) Name() string { return "csv" }

// Load implements Source.
func (c *CSVSource) Load(ctx context.Context, _ time.Duration) (*series.Series, error) {
	if c.Path == "" {
		return nil, errors.New("csv source: path is required")
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	tsIdx := -1
	known := series.New(0).Columns()
	columns := make(map[int]string) // field index -> sensor column
	for i, name := range header {
		switch {
		case name == "timestamp" || name == "ts":
			tsIdx = i
		default:
			if _, ok := known[name]; ok {
				columns[i] = name
			}
		}
	}
	if tsIdx < 0 {
		return nil, errors.New("csv source: no timestamp column in header")
	}
	if len(columns) == 0 {
		return nil, errors.New("csv source: no recognized sensor columns in header")
	}

	b := newBuilder()
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		ts, err := parseCSVTimestamp(record[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, col := range columns {
			if i < len(record) {
				b.set(ts, col, parseReading(record[i]))
			}
		}
	}

	return b.build()
}

func parseCSVTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	if sec, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Unix(0, int64(sec*float64(time.Second))).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
