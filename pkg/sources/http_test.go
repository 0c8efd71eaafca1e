package sources

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPSource_BasicGET(t *testing.T) {
	json := `{
        "rows": [
            {"ts": "2024-06-01T00:00:00Z", "flow": 64.2, "pump": 0},
            {"ts": "2024-06-01T00:00:10Z", "flow": 64.5, "pump": 1000},
            {"ts": "2024-06-01T00:00:20Z", "flow": 64.9, "pump": 1000}
        ]
    }`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected Accept: application/json header")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, json)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "rows.#.ts",
		ColumnPaths: map[string]string{
			"boiler_flow_temp": "rows.#.flow",
			"dhw_flow_rate":    "rows.#.pump",
		},
	}

	s, err := src.Load(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", s.Len())
	}

	wantFlow := []float64{64.2, 64.5, 64.9}
	wantPump := []float64{0, 1000, 1000}
	for i := range wantFlow {
		if s.BoilerFlowTemp[i] != wantFlow[i] {
			t.Errorf("sample %d: BoilerFlowTemp = %v, want %v", i, s.BoilerFlowTemp[i], wantFlow[i])
		}
		if s.DHWFlowRate[i] != wantPump[i] {
			t.Errorf("sample %d: DHWFlowRate = %v, want %v", i, s.DHWFlowRate[i], wantPump[i])
		}
		// Columns the API never mentioned must stay missing.
		if !math.IsNaN(s.RoomTempAvg[i]) {
			t.Errorf("sample %d: RoomTempAvg = %v, want NaN", i, s.RoomTempAvg[i])
		}
	}
}

func TestHTTPSource_POSTWithBodyTemplate(t *testing.T) {
	receivedBody := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		receivedBody = string(buf[:n])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rows": [{"ts": 1717200000, "flow": 61.0}]}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:    server.URL,
		Method: "POST",
		Body:   `{"window": {{.WindowSeconds}}}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		TimestampPath:   "rows.#.ts",
		ColumnPaths:     map[string]string{"boiler_flow_temp": "rows.#.flow"},
		TimestampFormat: "unix",
	}

	s, err := src.Load(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", s.Len())
	}
	if receivedBody != `{"window": 3600}` {
		t.Errorf("unexpected body: %s", receivedBody)
	}
	want := time.Unix(1717200000, 0).UTC()
	if !s.Timestamps[0].Equal(want) {
		t.Errorf("timestamp = %v, want %v", s.Timestamps[0], want)
	}
}

func TestHTTPSource_AuthHeaders(t *testing.T) {
	receivedAuth := ""
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rows": [{"ts": "2024-06-01T00:00:00Z", "flow": 60}]}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL: server.URL,
		Headers: map[string]string{
			"Authorization": "Bearer {{.Token}}",
		},
		TemplateVars:  map[string]string{"Token": "secret123"},
		TimestampPath: "rows.#.ts",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "rows.#.flow"},
	}

	if _, err := src.Load(context.Background(), time.Hour); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if receivedAuth != "Bearer secret123" {
		t.Errorf("expected 'Bearer secret123', got '%s'", receivedAuth)
	}
}

func TestHTTPSource_NullReadingsBecomeMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rows": [
			{"ts": "2024-06-01T00:00:00Z", "flow": 60.0},
			{"ts": "2024-06-01T00:00:10Z", "flow": null},
			{"ts": "2024-06-01T00:00:20Z", "flow": 61.0}
		]}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "rows.#.ts",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "rows.#.flow"},
	}

	s, err := src.Load(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", s.Len())
	}
	if !math.IsNaN(s.BoilerFlowTemp[1]) {
		t.Errorf("BoilerFlowTemp[1] = %v, want NaN for null reading", s.BoilerFlowTemp[1])
	}
	if s.BoilerFlowTemp[0] != 60.0 || s.BoilerFlowTemp[2] != 61.0 {
		t.Errorf("neighboring readings corrupted: %v, %v", s.BoilerFlowTemp[0], s.BoilerFlowTemp[2])
	}
}

func TestHTTPSource_OutOfOrderRowsSorted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"rows": [
			{"ts": "2024-06-01T00:00:20Z", "flow": 3},
			{"ts": "2024-06-01T00:00:00Z", "flow": 1},
			{"ts": "2024-06-01T00:00:10Z", "flow": 2}
		]}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "rows.#.ts",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "rows.#.flow"},
	}

	s, err := src.Load(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate after sort: %v", err)
	}
	for i, want := range []float64{1, 2, 3} {
		if s.BoilerFlowTemp[i] != want {
			t.Errorf("sample %d: BoilerFlowTemp = %v, want %v", i, s.BoilerFlowTemp[i], want)
		}
	}
}

func TestHTTPSource_MismatchedArrayLengths(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"times": ["2024-06-01T00:00:00Z", "2024-06-01T00:00:10Z"],
			"flows": [1, 2, 3]
		}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "times",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "flows"},
	}

	_, err := src.Load(context.Background(), time.Hour)
	if err == nil {
		t.Fatal("expected error for mismatched array lengths")
	}
	if !strings.Contains(err.Error(), "count") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestHTTPSource_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "internal error")
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "rows.#.ts",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "rows.#.flow"},
	}

	_, err := src.Load(context.Background(), time.Hour)
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestHTTPSource_Validate(t *testing.T) {
	tests := []struct {
		name    string
		src     *HTTPSource
		wantErr bool
	}{
		{
			name: "valid config",
			src: &HTTPSource{
				URL:           "http://example.com",
				TimestampPath: "t",
				ColumnPaths:   map[string]string{"boiler_flow_temp": "v"},
			},
			wantErr: false,
		},
		{
			name: "missing URL",
			src: &HTTPSource{
				TimestampPath: "t",
				ColumnPaths:   map[string]string{"boiler_flow_temp": "v"},
			},
			wantErr: true,
		},
		{
			name: "missing timestamp path",
			src: &HTTPSource{
				URL:         "http://example.com",
				ColumnPaths: map[string]string{"boiler_flow_temp": "v"},
			},
			wantErr: true,
		},
		{
			name: "no column paths",
			src: &HTTPSource{
				URL:           "http://example.com",
				TimestampPath: "t",
			},
			wantErr: true,
		},
		{
			name: "unknown sensor column",
			src: &HTTPSource{
				URL:           "http://example.com",
				TimestampPath: "t",
				ColumnPaths:   map[string]string{"hot_tub_temp": "v"},
			},
			wantErr: true,
		},
		{
			name: "invalid timestamp format",
			src: &HTTPSource{
				URL:             "http://example.com",
				TimestampPath:   "t",
				ColumnPaths:     map[string]string{"boiler_flow_temp": "v"},
				TimestampFormat: "stardate",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr=%v, got err=%v", tt.wantErr, err)
			}
		})
	}
}

func TestHTTPSource_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		fmt.Fprint(w, `{"rows": []}`)
	}))
	defer server.Close()

	src := &HTTPSource{
		URL:           server.URL,
		TimestampPath: "rows.#.ts",
		ColumnPaths:   map[string]string{"boiler_flow_temp": "rows.#.flow"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := src.Load(ctx, time.Hour); err == nil {
		t.Fatal("expected timeout error")
	}
}
