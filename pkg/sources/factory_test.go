package sources

import (
	"context"
	"testing"
	"time"
)

func TestNew_CSV(t *testing.T) {
	src, err := New("csv", map[string]string{"path": "/data/readings.csv"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	csvSrc, ok := src.(*CSVSource)
	if !ok {
		t.Fatalf("expected *CSVSource, got %T", src)
	}
	if csvSrc.Path != "/data/readings.csv" {
		t.Errorf("Path = %s, want /data/readings.csv", csvSrc.Path)
	}
}

func TestNew_CSVRequiresPath(t *testing.T) {
	if _, err := New("csv", map[string]string{}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestNew_HTTP(t *testing.T) {
	config := map[string]string{
		"url":           "https://historian.example.com/query",
		"method":        "POST",
		"timestampPath": "rows.#.ts",
		"columnPaths":   `{"boiler_flow_temp": "rows.#.flow"}`,
		"headers":       `{"Authorization": "Bearer token"}`,
	}

	src, err := New("http", config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	httpSrc, ok := src.(*HTTPSource)
	if !ok {
		t.Fatalf("expected *HTTPSource, got %T", src)
	}
	if httpSrc.URL != "https://historian.example.com/query" {
		t.Errorf("URL = %s", httpSrc.URL)
	}
	if httpSrc.ColumnPaths["boiler_flow_temp"] != "rows.#.flow" {
		t.Errorf("ColumnPaths = %v", httpSrc.ColumnPaths)
	}
	if httpSrc.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers = %v", httpSrc.Headers)
	}
}

func TestNew_HTTPInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]string
	}{
		{"missing url", map[string]string{
			"timestampPath": "t",
			"columnPaths":   `{"boiler_flow_temp": "v"}`,
		}},
		{"bad columnPaths JSON", map[string]string{
			"url":           "http://example.com",
			"timestampPath": "t",
			"columnPaths":   `{not json`,
		}},
		{"no column paths", map[string]string{
			"url":           "http://example.com",
			"timestampPath": "t",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("http", tt.config); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_Kafka(t *testing.T) {
	config := map[string]string{
		"brokers":     "kafka-1:9092,kafka-2:9092",
		"topic":       "sensor-readings",
		"groupId":     "hydronic",
		"pollTimeout": "5s",
	}

	src, err := New("kafka", config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	kafkaSrc, ok := src.(*KafkaSource)
	if !ok {
		t.Fatalf("expected *KafkaSource, got %T", src)
	}
	if len(kafkaSrc.Brokers) != 2 || kafkaSrc.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", kafkaSrc.Brokers)
	}
	if kafkaSrc.Topic != "sensor-readings" {
		t.Errorf("Topic = %s", kafkaSrc.Topic)
	}
	if kafkaSrc.PollTimeout != 5*time.Second {
		t.Errorf("PollTimeout = %v, want 5s", kafkaSrc.PollTimeout)
	}
}

func TestNew_KafkaInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]string
	}{
		{"missing brokers", map[string]string{"topic": "t"}},
		{"missing topic", map[string]string{"brokers": "localhost:9092"}},
		{"bad pollTimeout", map[string]string{
			"brokers":     "localhost:9092",
			"topic":       "t",
			"pollTimeout": "soon",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("kafka", tt.config); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_Synthetic(t *testing.T) {
	src, err := New("synthetic", map[string]string{
		"summerDays": "2",
		"seed":       "42",
		"period":     "10s",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	synSrc, ok := src.(*SyntheticSource)
	if !ok {
		t.Fatalf("expected *SyntheticSource, got %T", src)
	}
	if synSrc.SummerDays != 2 || synSrc.Seed != 42 || synSrc.Period != 10*time.Second {
		t.Errorf("unexpected config: %+v", synSrc)
	}

	s, err := synSrc.Load(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if want := int(24 * time.Hour / (10 * time.Second)); s.Len() != want {
		t.Errorf("Len = %d, want %d", s.Len(), want)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New("carrier-pigeon", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSourceNames(t *testing.T) {
	tests := []struct {
		src  Source
		want string
	}{
		{&CSVSource{}, "csv"},
		{&HTTPSource{}, "http"},
		{&KafkaSource{}, "kafka"},
		{&SyntheticSource{}, "synthetic"},
	}
	for _, tt := range tests {
		if got := tt.src.Name(); got != tt.want {
			t.Errorf("Name() = %s, want %s", got, tt.want)
		}
	}
}
