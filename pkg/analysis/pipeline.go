package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

// Pipeline runs the four inference stages in order over a complete series:
//
//	infer burner status → calibrate burner power → decompose energy → classify steady state
//
// Data flows strictly forward. Each stage returns an augmented copy, so the
// caller's input series is never touched, and no derived column is ever
// recomputed by a later stage.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// Result is the fully annotated series plus the calibration that produced
// its generated-power column and a few aggregates for reporting.
type Result struct {
	Series      *series.Series
	Calibration Calibration

	// Elapsed-time-weighted energy totals over the whole series, in kWh.
	EnergyDHWKWh        float64
	EnergyRadiatorKWh   float64
	EnergyUnderfloorKWh float64
	EnergyGeneratedKWh  float64

	// SteadyFraction is the share of samples classified steady-state.
	SteadyFraction float64
}

// NewPipeline creates a pipeline with the given configuration.
func NewPipeline(cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Run executes the full pipeline. It fails only on input validation; every
// downstream condition (insufficient calibration data, missing enrichment,
// window edges) resolves to a documented default instead of an error.
func (p *Pipeline) Run(ctx context.Context, s *series.Series) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, fmt.Errorf("validate series: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()

	annotated := InferBurnerStatus(s, p.cfg)

	cal := EstimateBurnerPower(annotated, p.cfg)
	if cal.Strategy == StrategyFallback {
		p.logger.Warn("no usable calibration window, using fallback burner power",
			"fallback_kw", p.cfg.FallbackBurnerPower,
		)
	} else {
		p.logger.Info("calibrated burner power",
			"power_kw", cal.PowerKW,
			"strategy", string(cal.Strategy),
			"run_time_s", cal.RunTimeS,
			"samples", cal.Samples,
		)
	}

	decomposed := DecomposeEnergy(annotated, cal.PowerKW, p.cfg)
	classified := DetectSteadyState(decomposed, p.cfg)

	res := Result{Series: classified, Calibration: cal}
	p.aggregate(&res)

	p.logger.Info("analysis complete",
		"samples", classified.Len(),
		"burner_power_kw", cal.PowerKW,
		"generated_kwh", res.EnergyGeneratedKWh,
		"steady_fraction", res.SteadyFraction,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// aggregate integrates the power columns into energy totals and counts the
// steady fraction. NaN power samples (missing inputs) contribute nothing.
func (p *Pipeline) aggregate(res *Result) {
	s := res.Series
	elapsed := s.ElapsedSeconds(p.cfg.NominalPeriod)

	steadyCount := 0
	for i := 0; i < s.Len(); i++ {
		h := elapsed[i] / 3600.0
		res.EnergyDHWKWh += kwhTerm(s.PowerDHW[i], h)
		res.EnergyRadiatorKWh += kwhTerm(s.PowerRadiator[i], h)
		res.EnergyUnderfloorKWh += kwhTerm(s.PowerUnderfloor[i], h)
		res.EnergyGeneratedKWh += kwhTerm(s.PowerGenerated[i], h)
		if s.SteadyState[i] {
			steadyCount++
		}
	}
	if s.Len() > 0 {
		res.SteadyFraction = float64(steadyCount) / float64(s.Len())
	}
}

func kwhTerm(powerKW, hours float64) float64 {
	if math.IsNaN(powerKW) {
		return 0
	}
	return powerKW * hours
}
