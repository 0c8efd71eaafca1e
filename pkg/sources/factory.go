package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// New creates a source based on kind and a generic configuration map. This
// is the central extension point for adding new source types.
//
// Supported kinds:
//   - "csv": local sensor log export
//   - "http": generic REST API connector
//   - "kafka": Kafka topic consumer
//   - "synthetic": simulated installation
//
// Returns an error if kind is unknown or required fields are missing.
func New(kind string, config map[string]string) (Source, error) {
	switch kind {
	case "csv":
		return newCSV(config)
	case "http":
		return newHTTP(config)
	case "kafka":
		return newKafka(config)
	case "synthetic":
		return newSynthetic(config)
	default:
		return nil, fmt.Errorf("unknown source kind: %s (must be csv, http, kafka, or synthetic)", kind)
	}
}

func newCSV(config map[string]string) (Source, error) {
	path := config["path"]
	if path == "" {
		return nil, fmt.Errorf("csv source requires 'path' config")
	}
	return &CSVSource{Path: path}, nil
}

func newHTTP(config map[string]string) (Source, error) {
	src := &HTTPSource{
		URL:             config["url"],
		Method:          config["method"],
		Body:            config["body"],
		TimestampPath:   config["timestampPath"],
		TimestampFormat: config["timestampFormat"],
	}

	if pathsJSON := config["columnPaths"]; pathsJSON != "" {
		if err := json.Unmarshal([]byte(pathsJSON), &src.ColumnPaths); err != nil {
			return nil, fmt.Errorf("invalid 'columnPaths' JSON: %w", err)
		}
	}
	if headersJSON := config["headers"]; headersJSON != "" {
		if err := json.Unmarshal([]byte(headersJSON), &src.Headers); err != nil {
			return nil, fmt.Errorf("invalid 'headers' JSON: %w", err)
		}
	}
	if varsJSON := config["templateVars"]; varsJSON != "" {
		if err := json.Unmarshal([]byte(varsJSON), &src.TemplateVars); err != nil {
			return nil, fmt.Errorf("invalid 'templateVars' JSON: %w", err)
		}
	}

	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}
	return src, nil
}

func newKafka(config map[string]string) (Source, error) {
	brokers := config["brokers"]
	if brokers == "" {
		return nil, fmt.Errorf("kafka source requires 'brokers' config")
	}
	topic := config["topic"]
	if topic == "" {
		return nil, fmt.Errorf("kafka source requires 'topic' config")
	}

	src := &KafkaSource{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
		GroupID: config["groupId"],
	}
	if raw := config["pollTimeout"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'pollTimeout': %w", err)
		}
		src.PollTimeout = d
	}
	return src, nil
}

func newSynthetic(config map[string]string) (Source, error) {
	src := &SyntheticSource{}
	if raw := config["summerDays"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'summerDays': %w", err)
		}
		src.SummerDays = n
	}
	if raw := config["seed"]; raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid 'seed': %w", err)
		}
		src.Seed = n
	}
	if raw := config["period"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid 'period': %w", err)
		}
		src.Period = d
	}
	return src, nil
}
