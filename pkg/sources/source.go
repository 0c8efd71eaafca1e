// Package sources provides connectors that retrieve heating installation
// telemetry from external systems and normalize it into the common
// series.Series structure.
//
// Each source implements the Source interface and can be plugged into the
// analyzer loop. Available sources include:
//   - CSVSource       — reads exported sensor logs from a local file
//   - HTTPSource      — generic connector for any REST API with JSON responses
//   - KafkaSource     — drains sensor readings from a Kafka topic
//   - SyntheticSource — simulated installation data for demos and testing
//
// Sources are intentionally lightweight. They pull raw readings, shape them
// into a [series.Series], and leave all inference to the analysis layer.
package sources

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

// Source is the interface every telemetry connector implements.
//
// Load fetches readings covering roughly the given window ending now and
// returns them as a time-ordered series. Sources reading from static files
// may ignore the window. The call is synchronous and must respect context
// cancellation.
type Source interface {
	Load(ctx context.Context, window time.Duration) (*series.Series, error)

	// Name returns a short, unique identifier. Example: "csv", "kafka".
	Name() string
}

// builder accumulates readings keyed by timestamp and sensor column, then
// assembles them into a sorted series. Columns never mentioned stay NaN, so
// partial installations produce valid partial series.
type builder struct {
	rows map[int64]map[string]float64
}

func newBuilder() *builder {
	return &builder{rows: make(map[int64]map[string]float64)}
}

func (b *builder) set(ts time.Time, column string, v float64) {
	key := ts.UnixNano()
	row := b.rows[key]
	if row == nil {
		row = make(map[string]float64)
		b.rows[key] = row
	}
	row[column] = v
}

func (b *builder) build() (*series.Series, error) {
	keys := make([]int64, 0, len(b.rows))
	for k := range b.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	s := series.New(len(keys))
	cols := s.Columns()
	for i, k := range keys {
		s.Timestamps[i] = time.Unix(0, k).UTC()
		for name, v := range b.rows[k] {
			col, ok := cols[name]
			if !ok {
				return nil, fmt.Errorf("unknown sensor column %q", name)
			}
			col[i] = v
		}
	}
	return s, nil
}

// parseReading parses a numeric cell; empty and malformed values map to NaN
// rather than failing the whole load, mirroring how gappy sensor exports are
// handled downstream.
func parseReading(raw string) float64 {
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
