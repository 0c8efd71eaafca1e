// Package main implements the core analysis loop orchestration.
//
// This file contains the Analyzer type which orchestrates the pipeline:
//
//	load → enrich → analyze → store
//
// The Analyzer runs via Run(), executing Tick() either once (batch mode,
// interval 0) or at regular intervals. Each tick loads the historical sensor
// series from the configured source, optionally enriches it with climate
// readings, runs the energy-inference pipeline, and stores the resulting
// report for the HTTP API to serve.
//
// The loop is instrumented with Prometheus metrics tracking the duration of
// the load and pipeline stages and any errors encountered.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/hydronic/cmd/analyzer/metrics"
	"github.com/HatiCode/hydronic/pkg/analysis"
	"github.com/HatiCode/hydronic/pkg/enrich"
	"github.com/HatiCode/hydronic/pkg/series"
	"github.com/HatiCode/hydronic/pkg/sources"
	"github.com/HatiCode/hydronic/pkg/storage"
)

// Analyzer orchestrates the analysis loop: load → enrich → analyze → store.
type Analyzer struct {
	site     string
	source   sources.Source
	enricher *enrich.InfluxEnricher
	pipeline *analysis.Pipeline
	store    storage.Store
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a new Analyzer. The enricher may be nil when climate
// enrichment is not configured.
func New(
	site string,
	source sources.Source,
	enricher *enrich.InfluxEnricher,
	pipeline *analysis.Pipeline,
	store storage.Store,
	window time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Analyzer{
		site:     site,
		source:   source,
		enricher: enricher,
		pipeline: pipeline,
		store:    store,
		window:   window,
		logger:   logger,
		metrics:  m,
	}
}

// Run executes the analysis loop. With interval <= 0 it performs a single
// tick and returns; otherwise it ticks at the given interval until the
// context is canceled.
func (a *Analyzer) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		a.logger.Info("running single analysis pass", "window", a.window)
		return a.Tick(ctx)
	}

	a.logger.Info("starting analysis loop", "interval", interval, "window", a.window)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := a.Tick(ctx); err != nil {
		a.logger.Error("initial analysis tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("analysis loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Tick(ctx); err != nil {
				a.logger.Error("analysis tick failed", "error", err)
			}
		}
	}
}

// Tick performs one analysis cycle.
// Exported for testing purposes.
func (a *Analyzer) Tick(ctx context.Context) error {
	start := time.Now()
	a.logger.Debug("starting analysis tick")

	s, loadDuration, err := a.load(ctx)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("source", "load_failed")
		}
		return fmt.Errorf("load: %w", err)
	}

	if a.enricher != nil {
		s = a.enricher.Enrich(ctx, s)
	}

	result, runDuration, err := a.analyze(ctx, s)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("pipeline", "run_failed")
		}
		return fmt.Errorf("analyze: %w", err)
	}

	report := buildReport(a.site, result)
	if err := a.store.Put(ctx, report); err != nil {
		if a.metrics != nil {
			a.metrics.RecordError("store", "put_failed")
		}
		return fmt.Errorf("store: %w", err)
	}

	if a.metrics != nil {
		a.metrics.SetReportAge(0)
		a.metrics.SetBurnerPower(result.Calibration.PowerKW)
		a.metrics.SetSeriesSamples(report.Samples)
		a.metrics.SetSteadyFraction(result.SteadyFraction)
	}

	totalDuration := time.Since(start)
	a.logger.Info("analysis tick complete",
		"site", a.site,
		"samples", report.Samples,
		"burner_power_kw", result.Calibration.PowerKW,
		"calibration_strategy", result.Calibration.Strategy,
		"generated_kwh", result.EnergyGeneratedKWh,
		"steady_fraction", result.SteadyFraction,
		"load_ms", loadDuration.Milliseconds(),
		"pipeline_ms", runDuration.Milliseconds(),
		"total_ms", totalDuration.Milliseconds(),
	)

	return nil
}

// load retrieves the sensor series from the source.
func (a *Analyzer) load(ctx context.Context) (*series.Series, time.Duration, error) {
	start := time.Now()

	s, err := a.source.Load(ctx, a.window)
	if err != nil {
		return nil, 0, err
	}

	duration := time.Since(start)

	if a.metrics != nil {
		a.metrics.RecordLoad(duration.Seconds())
	}

	a.logger.Info("loaded series",
		"source", a.source.Name(),
		"samples", s.Len(),
		"window", a.window,
		"duration_ms", duration.Milliseconds(),
	)

	return s, duration, nil
}

// analyze runs the energy-inference pipeline.
func (a *Analyzer) analyze(ctx context.Context, s *series.Series) (analysis.Result, time.Duration, error) {
	start := time.Now()

	result, err := a.pipeline.Run(ctx, s)
	if err != nil {
		return analysis.Result{}, 0, err
	}

	duration := time.Since(start)

	if a.metrics != nil {
		a.metrics.RecordPipeline(duration.Seconds())
	}

	a.logger.Debug("pipeline complete",
		"samples", result.Series.Len(),
		"duration_ms", duration.Milliseconds(),
	)

	return result, duration, nil
}

// buildReport converts a pipeline result into a storable report.
func buildReport(site string, result analysis.Result) storage.Report {
	report := storage.Report{
		Site:                site,
		GeneratedAt:         time.Now(),
		BurnerPowerKW:       result.Calibration.PowerKW,
		CalibrationStrategy: string(result.Calibration.Strategy),
		Samples:             result.Series.Len(),
		EnergyDHWKWh:        result.EnergyDHWKWh,
		EnergyRadiatorKWh:   result.EnergyRadiatorKWh,
		EnergyUnderfloorKWh: result.EnergyUnderfloorKWh,
		EnergyGeneratedKWh:  result.EnergyGeneratedKWh,
		SteadyFraction:      result.SteadyFraction,
	}

	if n := result.Series.Len(); n > 0 {
		report.RangeFrom = result.Series.Timestamps[0]
		report.RangeTo = result.Series.Timestamps[n-1]
	}

	return report
}

// GetStore returns the underlying store for HTTP handlers.
func (a *Analyzer) GetStore() storage.Store {
	return a.store
}

// GetSite returns the site name.
func (a *Analyzer) GetSite() string {
	return a.site
}
