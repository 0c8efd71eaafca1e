package sources

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestCSVSource_Load(t *testing.T) {
	path := writeCSV(t, `timestamp,boiler_flow_temp,dhw_flow_rate,room_hygrometer
2024-06-01T00:00:00Z,64.2,0,55
2024-06-01T00:00:10Z,64.5,1000,56
2024-06-01T00:00:20Z,,1000,57
`)

	src := &CSVSource{Path: path}
	s, err := src.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", s.Len())
	}
	if s.BoilerFlowTemp[0] != 64.2 || s.DHWFlowRate[1] != 1000 {
		t.Errorf("readings misplaced: %v, %v", s.BoilerFlowTemp[0], s.DHWFlowRate[1])
	}
	// Empty cell parses as missing.
	if !math.IsNaN(s.BoilerFlowTemp[2]) {
		t.Errorf("BoilerFlowTemp[2] = %v, want NaN", s.BoilerFlowTemp[2])
	}
	// The unrecognized hygrometer column is skipped, not an error.
	want := time.Date(2024, 6, 1, 0, 0, 10, 0, time.UTC)
	if !s.Timestamps[1].Equal(want) {
		t.Errorf("Timestamps[1] = %v, want %v", s.Timestamps[1], want)
	}
}

func TestCSVSource_UnixTimestamps(t *testing.T) {
	path := writeCSV(t, `ts,boiler_flow_temp
1717200000,60.5
1717200010,60.9
`)

	src := &CSVSource{Path: path}
	s, err := src.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := time.Unix(1717200000, 0).UTC()
	if !s.Timestamps[0].Equal(want) {
		t.Errorf("Timestamps[0] = %v, want %v", s.Timestamps[0], want)
	}
}

func TestCSVSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no timestamp column", "boiler_flow_temp\n60.5\n"},
		{"no sensor columns", "timestamp,foo\n2024-06-01T00:00:00Z,1\n"},
		{"bad timestamp", "timestamp,boiler_flow_temp\nyesterday,60.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &CSVSource{Path: writeCSV(t, tt.content)}
			if _, err := src.Load(context.Background(), 0); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	if _, err := src.Load(context.Background(), 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCSVSource_EmptyPath(t *testing.T) {
	src := &CSVSource{}
	if _, err := src.Load(context.Background(), 0); err == nil {
		t.Fatal("expected error for empty path")
	}
}
