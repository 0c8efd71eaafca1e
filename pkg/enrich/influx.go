// Package enrich augments loaded telemetry with context signals held in
// external systems. Today that is the weather and room-climate data the
// installation itself does not measure, served from InfluxDB.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/HatiCode/hydronic/pkg/series"
)

// Reading is a single timestamped value for one sensor column.
type Reading struct {
	Time  time.Time
	Value float64
}

// InfluxEnricher fetches outside and room temperatures from an InfluxDB
// bucket and merges them into a series. Enrichment is best-effort: an
// unreachable or empty Influx logs a warning and leaves the series
// untouched, because the core inference does not depend on these columns —
// only steady-state classification matches fewer samples without them.
type InfluxEnricher struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// Measurement holds the temperature fields. Defaults to "climate".
	Measurement string

	// OutsideField and RoomField name the Influx fields to merge into
	// outside_temp and room_temp_avg. Empty fields are skipped.
	OutsideField string
	RoomField    string

	// MaxAge bounds how far a reading may be carried forward onto later
	// samples. Defaults to 10 minutes.
	MaxAge time.Duration

	Logger *slog.Logger
}

// Enrich returns a copy of the series with the climate columns filled in
// where readings exist. It never fails the pipeline: every degradation path
// returns the input unchanged.
func (e *InfluxEnricher) Enrich(ctx context.Context, s *series.Series) *series.Series {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.URL == "" || s.Len() == 0 {
		return s
	}

	fields := map[string]string{}
	if e.OutsideField != "" {
		fields[e.OutsideField] = "outside_temp"
	}
	if e.RoomField != "" {
		fields[e.RoomField] = "room_temp_avg"
	}
	if len(fields) == 0 {
		return s
	}

	readings, err := e.query(ctx, s.Timestamps[0], s.Timestamps[s.Len()-1], fields)
	if err != nil {
		logger.Warn("influx enrichment skipped", "url", e.URL, "error", err)
		return s
	}

	out := s.Clone()
	cols := out.Columns()
	maxAge := e.MaxAge
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	for column, rs := range readings {
		MergeReadings(out.Timestamps, cols[column], rs, maxAge)
	}
	return out
}

// query runs one flux query over the sample range and groups the result
// rows by target column.
func (e *InfluxEnricher) query(ctx context.Context, from, to time.Time, fields map[string]string) (map[string][]Reading, error) {
	measurement := e.Measurement
	if measurement == "" {
		measurement = "climate"
	}

	client := influxdb2.NewClient(e.URL, e.Token)
	defer client.Close()

	flux := fmt.Sprintf(
		`from(bucket: %q) |> range(start: %s, stop: %s) |> filter(fn: (r) => r._measurement == %q)`,
		e.Bucket, from.UTC().Format(time.RFC3339), to.UTC().Add(time.Second).Format(time.RFC3339), measurement,
	)

	result, err := client.QueryAPI(e.Org).Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	readings := make(map[string][]Reading)
	for result.Next() {
		rec := result.Record()
		column, ok := fields[rec.Field()]
		if !ok {
			continue
		}
		v, ok := rec.Value().(float64)
		if !ok {
			continue
		}
		readings[column] = append(readings[column], Reading{Time: rec.Time(), Value: v})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("no readings in range %s..%s", from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return readings, nil
}

// MergeReadings fills dst with the nearest preceding reading for each
// timestamp, carrying a reading forward at most maxAge. Samples with no
// usable reading keep their existing value, so sparse enrichment never
// erases sensor data already present.
func MergeReadings(timestamps []time.Time, dst []float64, readings []Reading, maxAge time.Duration) {
	if len(readings) == 0 {
		return
	}
	sort.Slice(readings, func(i, j int) bool { return readings[i].Time.Before(readings[j].Time) })

	r := 0
	for i, ts := range timestamps {
		for r < len(readings) && !readings[r].Time.After(ts) {
			r++
		}
		if r == 0 {
			continue // no reading at or before this sample
		}
		last := readings[r-1]
		if ts.Sub(last.Time) > maxAge || math.IsNaN(last.Value) {
			continue
		}
		dst[i] = last.Value
	}
}
