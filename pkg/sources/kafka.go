package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tidwall/gjson"

	"github.com/HatiCode/hydronic/pkg/series"
)

// KafkaSource drains sensor readings from a Kafka topic.
//
// Messages are JSON documents of the form
//
//	{"ts": "2024-06-01T12:00:00Z", "readings": {"boiler_flow_temp": 64.2, ...}}
//
// with reading keys matching the sensor column names; unknown keys are
// skipped. The source reads from the earliest retained offset until the
// topic is drained (no message arrives within PollTimeout) and keeps only
// readings inside the requested window. Malformed messages are counted and
// skipped, not fatal: one bad producer must not take down analysis.
type KafkaSource struct {
	// Brokers lists bootstrap broker addresses (required).
	Brokers []string

	// Topic is the topic to consume (required).
	Topic string

	// GroupID is optional; when empty the source reads the whole topic from
	// the first offset on every load instead of tracking committed offsets.
	GroupID string

	// PollTimeout bounds the wait for the next message before the topic
	// counts as drained. Defaults to 3s.
	PollTimeout time.Duration

	// Skipped reports how many messages the last Load dropped as malformed.
	Skipped int
}

func (k *KafkaSource) Name() string { return "kafka" }

// Load implements Source.
func (k *KafkaSource) Load(ctx context.Context, window time.Duration) (*series.Series, error) {
	if len(k.Brokers) == 0 {
		return nil, errors.New("kafka source: at least one broker is required")
	}
	if k.Topic == "" {
		return nil, errors.New("kafka source: topic is required")
	}

	pollTimeout := k.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 3 * time.Second
	}

	cfg := kafka.ReaderConfig{
		Brokers:     k.Brokers,
		Topic:       k.Topic,
		GroupID:     k.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}
	r := kafka.NewReader(cfg)
	defer r.Close()

	cutoff := time.Time{}
	if window > 0 {
		cutoff = time.Now().UTC().Add(-window)
	}

	known := series.New(0).Columns()
	b := newBuilder()
	k.Skipped = 0

	for {
		msgCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		m, err := r.ReadMessage(msgCtx)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break // drained
			}
			return nil, fmt.Errorf("read message: %w", err)
		}

		if !parseMessage(m.Value, known, b) {
			k.Skipped++
		}
	}

	s, err := b.build()
	if err != nil {
		return nil, err
	}
	if !cutoff.IsZero() {
		s = trimBefore(s, cutoff)
	}
	return s, nil
}

// parseMessage extracts the timestamp and readings from one message and
// feeds them into the builder. Returns false for malformed documents.
func parseMessage(value []byte, known map[string][]float64, b *builder) bool {
	if !gjson.ValidBytes(value) {
		return false
	}
	tsField := gjson.GetBytes(value, "ts")
	if !tsField.Exists() {
		return false
	}
	ts, err := time.Parse(time.RFC3339, tsField.String())
	if err != nil {
		return false
	}

	readings := gjson.GetBytes(value, "readings")
	if !readings.IsObject() {
		return false
	}
	readings.ForEach(func(key, val gjson.Result) bool {
		if _, ok := known[key.String()]; ok && val.Type == gjson.Number {
			b.set(ts, key.String(), val.Float())
		}
		return true
	})
	return true
}

// trimBefore drops the leading samples older than the cutoff.
func trimBefore(s *series.Series, cutoff time.Time) *series.Series {
	start := 0
	for start < s.Len() && s.Timestamps[start].Before(cutoff) {
		start++
	}
	if start == 0 {
		return s
	}

	out := series.New(s.Len() - start)
	copy(out.Timestamps, s.Timestamps[start:])
	dst := out.Columns()
	for name, col := range s.Columns() {
		copy(dst[name], col[start:])
	}
	return out
}
