package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/hydronic/pkg/series"
)

// HTTPSource is a generic connector that can call any REST API endpoint and
// extract sensor readings using JSON path expressions.
//
// It supports:
//   - Configurable HTTP method (GET, POST, etc.)
//   - Template-based request body with variables: {{.WindowSeconds}}, {{.Start}}, {{.End}}
//   - Custom headers including authentication (Bearer tokens, API keys, etc.)
//   - JSON path extraction per sensor column using gjson syntax
//   - Flexible timestamp parsing (RFC3339, Unix seconds, Unix milliseconds)
//
// Example configuration against a historian API:
//
//	src := &HTTPSource{
//	    URL:    "https://historian.example.com/query",
//	    Method: "POST",
//	    Body:   `{"from": {{.Start}}, "to": {{.End}}}`,
//	    TimestampPath: "rows.#.ts",
//	    ColumnPaths: map[string]string{
//	        "boiler_flow_temp": "rows.#.boiler_flow",
//	        "dhw_flow_rate":    "rows.#.dhw_pump",
//	    },
//	}
type HTTPSource struct {
	// URL is the endpoint to call (required).
	URL string

	// Method is the HTTP method. Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers to include in the request.
	// Values can use template variables like {{.Token}}.
	Headers map[string]string

	// Body is the request body template (for POST/PUT). Supports variables:
	//   {{.WindowSeconds}} - the load window in seconds
	//   {{.Start}}         - window start as Unix timestamp
	//   {{.End}}           - window end as Unix timestamp
	//   {{.StartRFC3339}}  - window start as RFC3339 string
	//   {{.EndRFC3339}}    - window end as RFC3339 string
	Body string

	// TimestampPath is the gjson path to the timestamp array (required).
	TimestampPath string

	// ColumnPaths maps sensor column names to gjson paths. Every path must
	// yield the same number of elements as TimestampPath; null elements
	// become missing values. At least one entry is required.
	ColumnPaths map[string]string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339"    - RFC3339 strings (default)
	//   "unix"       - Unix seconds (float or int)
	//   "unix_milli" - Unix milliseconds (float or int)
	TimestampFormat string

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client

	// TemplateVars are extra variables available in Body and Headers
	// templates. Use this to pass tokens, site identifiers, etc.
	TemplateVars map[string]string
}

func (h *HTTPSource) Name() string { return "http" }

// Validate checks the static configuration.
func (h *HTTPSource) Validate() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}
	if len(h.ColumnPaths) == 0 {
		return errors.New("at least one column path is required")
	}
	known := series.New(0).Columns()
	for col := range h.ColumnPaths {
		if _, ok := known[col]; !ok {
			return fmt.Errorf("unknown sensor column %q", col)
		}
	}
	switch h.TimestampFormat {
	case "", "rfc3339", "unix", "unix_milli":
		return nil
	default:
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, or unix_milli)", h.TimestampFormat)
	}
}

// Load implements Source. It calls the configured endpoint and extracts the
// readings using the configured JSON paths.
func (h *HTTPSource) Load(ctx context.Context, window time.Duration) (*series.Series, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("http source: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	start := now.Add(-window)

	templateData := map[string]any{
		"WindowSeconds": int(window.Seconds()),
		"Start":         start.Unix(),
		"End":           now.Unix(),
		"StartRFC3339":  start.Format(time.RFC3339),
		"EndRFC3339":    now.Format(time.RFC3339),
	}
	for k, v := range h.TemplateVars {
		templateData[k] = v
	}

	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, templateData)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		bodyReader = bytes.NewBufferString(rendered)
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, templateData)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	timestamps := gjson.GetBytes(respBody, h.TimestampPath)
	if !timestamps.Exists() {
		return nil, fmt.Errorf("timestamp path %q not found in response", h.TimestampPath)
	}
	tsArray := timestamps.Array()

	parsed := make([]time.Time, len(tsArray))
	for i, raw := range tsArray {
		ts, err := h.parseTimestamp(raw)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp[%d]: %w", i, err)
		}
		parsed[i] = ts
	}

	b := newBuilder()
	for col, path := range h.ColumnPaths {
		values := gjson.GetBytes(respBody, path)
		if !values.Exists() {
			return nil, fmt.Errorf("column path %q not found in response", path)
		}
		valArray := values.Array()
		if len(valArray) != len(parsed) {
			return nil, fmt.Errorf("column %s: value count (%d) != timestamp count (%d)", col, len(valArray), len(parsed))
		}
		for i, v := range valArray {
			if v.Type == gjson.Null {
				b.set(parsed[i], col, math.NaN())
				continue
			}
			b.set(parsed[i], col, v.Float())
		}
	}

	return b.build()
}

func (h *HTTPSource) parseTimestamp(value gjson.Result) (time.Time, error) {
	format := h.TimestampFormat
	if format == "" {
		format = "rfc3339"
	}
	switch format {
	case "rfc3339":
		return time.Parse(time.RFC3339, value.String())
	case "unix":
		return time.Unix(0, int64(value.Float()*float64(time.Second))).UTC(), nil
	case "unix_milli":
		return time.UnixMilli(int64(value.Float())).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", format)
	}
}

// renderTemplate renders a text template with the given data.
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
