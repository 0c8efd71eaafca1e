// Package metrics provides Prometheus metrics instrumentation for the
// analyzer.
//
// It exposes operational metrics about the analysis loop, including the
// duration of the load and pipeline stages, the outcome of the last run
// (calibrated burner power, sample count, steady fraction, report age), and
// error tracking. All metrics are exposed via the /metrics HTTP endpoint for
// Prometheus scraping.
//
// Metrics exposed:
//   - hydronic_source_load_seconds: Histogram of sensor-series load duration
//   - hydronic_pipeline_run_seconds: Histogram of analysis pipeline duration
//   - hydronic_burner_power_kw: Gauge of the calibrated burner power
//   - hydronic_series_samples: Gauge of samples in the last analyzed series
//   - hydronic_steady_fraction: Gauge of the steady-state sample fraction
//   - hydronic_report_age_seconds: Gauge of the current report age
//   - hydronic_errors_total: Counter of errors by component and reason
//
// All metrics include the site label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the analyzer.
type Metrics struct {
	SourceLoadSeconds  prometheus.Histogram
	PipelineRunSeconds prometheus.Histogram
	BurnerPowerKW      prometheus.Gauge
	SeriesSamples      prometheus.Gauge
	SteadyFraction     prometheus.Gauge
	ReportAgeSeconds   prometheus.Gauge
	ErrorsTotal        *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(site string) *Metrics {
	return &Metrics{
		SourceLoadSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "hydronic_source_load_seconds",
			Help: "Time spent loading the sensor series from the source",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
			Buckets: prometheus.DefBuckets,
		}),

		PipelineRunSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "hydronic_pipeline_run_seconds",
			Help: "Time spent running the analysis pipeline",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
			Buckets: prometheus.DefBuckets,
		}),

		BurnerPowerKW: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hydronic_burner_power_kw",
			Help: "Calibrated burner power in kW from the last analysis run",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		SeriesSamples: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hydronic_series_samples",
			Help: "Number of samples in the last analyzed series",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		SteadyFraction: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hydronic_steady_fraction",
			Help: "Fraction of samples classified steady-state in the last run",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		ReportAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "hydronic_report_age_seconds",
			Help: "Age of the current report in seconds",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hydronic_errors_total",
			Help: "Total number of errors by component and reason",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}, []string{"component", "reason"}),
	}
}

// RecordLoad records the time spent loading the series.
func (m *Metrics) RecordLoad(seconds float64) {
	m.SourceLoadSeconds.Observe(seconds)
}

// RecordPipeline records the time spent in the analysis pipeline.
func (m *Metrics) RecordPipeline(seconds float64) {
	m.PipelineRunSeconds.Observe(seconds)
}

// SetBurnerPower sets the calibrated burner power gauge.
func (m *Metrics) SetBurnerPower(kw float64) {
	m.BurnerPowerKW.Set(kw)
}

// SetSeriesSamples sets the analyzed sample count gauge.
func (m *Metrics) SetSeriesSamples(n int) {
	m.SeriesSamples.Set(float64(n))
}

// SetSteadyFraction sets the steady-state fraction gauge.
func (m *Metrics) SetSteadyFraction(fraction float64) {
	m.SteadyFraction.Set(fraction)
}

// SetReportAge sets the current report age.
func (m *Metrics) SetReportAge(seconds float64) {
	m.ReportAgeSeconds.Set(seconds)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
