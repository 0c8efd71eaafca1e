package analysis

import (
	"math"
	"sort"

	"github.com/HatiCode/hydronic/pkg/series"
)

// CircuitPowerKW computes instantaneous circuit power from flow rate and the
// supply/return temperature pair:
//
//	P = m_dot * cp * (t_supply - t_return)
//
// with the mass flow derived from the volumetric flow (L/h) and the fluid
// density. Every directly measured circuit uses this identical primitive;
// only which sensors act as supply and return differs. Zero flow yields
// exactly zero power regardless of the temperature difference; swapping
// supply and return negates the result.
func CircuitPowerKW(flowLPerH, tSupply, tReturn float64, cfg Config) float64 {
	if flowLPerH == 0 {
		return 0
	}
	flowM3PerS := flowLPerH / 1000.0 / 3600.0
	massFlowKgPerS := flowM3PerS * cfg.WaterDensity
	powerW := massFlowKgPerS * cfg.WaterSpecificHeat * (tSupply - tReturn)
	return powerW / 1000.0
}

// CalibrationStrategy records which branch of the calibration decision table
// produced the burner power estimate.
type CalibrationStrategy string

const (
	// StrategySummerDays solved the energy balance over whole days whose
	// radiator circuit never ran.
	StrategySummerDays CalibrationStrategy = "summer-days"
	// StrategyIdleBlock fell back to the longest contiguous radiator-idle
	// block when no full summer day exists.
	StrategyIdleBlock CalibrationStrategy = "idle-block"
	// StrategyPerRunMedian is the per-run variant: the median power over
	// individual burner runs.
	StrategyPerRunMedian CalibrationStrategy = "per-run-median"
	// StrategyFallback means no usable calibration window existed and the
	// configured default was returned.
	StrategyFallback CalibrationStrategy = "fallback"
)

// Calibration is the result of a burner power estimation.
type Calibration struct {
	PowerKW  float64
	Strategy CalibrationStrategy
	RunTimeS float64 // total burner-active seconds in the calibration subset
	Samples  int     // samples in the calibration subset
	RunsUsed int     // per-run variant only
}

// EstimateBurnerPower solves for the burner's rated thermal power using the
// lumped energy balance over a radiator-idle ("summer mode") subset:
//
//	burner_power * run_time = dhw_energy + boiler_store_delta
//
// Preference order (an explicit decision table, top branch wins):
//
//  1. Whole summer days: calendar days whose maximum radiator flow stays
//     below the idle threshold.
//  2. The longest contiguous block of radiator-idle samples.
//  3. The configured fallback constant.
//
// Any branch whose subset yields under MinRunDuration of burner run time, or
// a non-finite estimate, falls through to the fallback. The estimator never
// returns an error: calibration failure degrades accuracy, not availability.
// The input must already carry BurnerActive.
func EstimateBurnerPower(s *series.Series, cfg Config) Calibration {
	if s.Len() == 0 || s.BurnerActive == nil {
		return Calibration{PowerKW: cfg.FallbackBurnerPower, Strategy: StrategyFallback}
	}

	if idx := summerDayIndices(s, cfg); len(idx) > 0 {
		if cal, ok := balanceOver(s, idx, cfg); ok {
			cal.Strategy = StrategySummerDays
			return cal
		}
	}

	if idx := longestIdleBlock(s, cfg); len(idx) > 0 {
		if cal, ok := balanceOver(s, idx, cfg); ok {
			cal.Strategy = StrategyIdleBlock
			return cal
		}
	}

	return Calibration{PowerKW: cfg.FallbackBurnerPower, Strategy: StrategyFallback}
}

// balanceOver solves the energy balance over the given sample subset.
// Returns ok=false when the subset has too little burner run time or the
// estimate is not finite.
func balanceOver(s *series.Series, idx []int, cfg Config) (Calibration, bool) {
	elapsed := s.ElapsedSeconds(cfg.NominalPeriod)

	runTime := 0.0
	dhwEnergyKJ := 0.0
	prev := -1
	for _, i := range idx {
		dt := elapsed[i]
		// The subset's first sample, or one following a hole in the subset,
		// has no usable predecessor; the nominal period stands in.
		if prev < 0 || i != prev+1 {
			dt = cfg.NominalPeriod.Seconds()
		}
		prev = i

		if s.BurnerActive[i] {
			runTime += dt
		}
		p := CircuitPowerKW(nanToZero(s.DHWFlowRate[i]), s.DHWFlowTemp[i], s.DHWReturnTemp[i], cfg)
		if !math.IsNaN(p) {
			dhwEnergyKJ += p * dt
		}
	}

	if runTime < cfg.MinRunDuration.Seconds() {
		return Calibration{}, false
	}

	tStart, okStart := firstFinite(s.BoilerFlowTemp, idx)
	tEnd, okEnd := lastFinite(s.BoilerFlowTemp, idx)
	storeDeltaKJ := 0.0
	if okStart && okEnd {
		storeDeltaKJ = cfg.BoilerMass() * (cfg.WaterSpecificHeat / 1000.0) * (tEnd - tStart)
	}

	power := (dhwEnergyKJ + storeDeltaKJ) / runTime
	if !isFinitePositive(power) {
		return Calibration{}, false
	}

	return Calibration{PowerKW: power, RunTimeS: runTime, Samples: len(idx)}, true
}

// summerDayIndices returns the indices of all samples whose calendar date
// qualifies as a summer day: the day's maximum radiator flow stays below the
// idle threshold. Days with no radiator reading at all do not qualify.
func summerDayIndices(s *series.Series, cfg Config) []int {
	type dayStat struct {
		max      float64
		anyValid bool
	}
	days := make(map[string]*dayStat)
	for i, ts := range s.Timestamps {
		key := ts.Format("2006-01-02")
		st := days[key]
		if st == nil {
			st = &dayStat{max: math.Inf(-1)}
			days[key] = st
		}
		if f := s.RadiatorFlowRate[i]; !math.IsNaN(f) {
			st.anyValid = true
			if f > st.max {
				st.max = f
			}
		}
	}

	summer := make(map[string]bool)
	for key, st := range days {
		if st.anyValid && st.max < cfg.IdleFlowThreshold {
			summer[key] = true
		}
	}
	if len(summer) == 0 {
		return nil
	}

	var idx []int
	for i, ts := range s.Timestamps {
		if summer[ts.Format("2006-01-02")] {
			idx = append(idx, i)
		}
	}
	return idx
}

// longestIdleBlock returns the longest contiguous run of samples with
// radiator flow below the idle threshold.
func longestIdleBlock(s *series.Series, cfg Config) []int {
	bestStart, bestLen := -1, 0
	start := -1
	for i := 0; i <= s.Len(); i++ {
		idle := i < s.Len() && !math.IsNaN(s.RadiatorFlowRate[i]) && s.RadiatorFlowRate[i] < cfg.IdleFlowThreshold
		if idle {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start > bestLen {
			bestStart, bestLen = start, i-start
		}
		start = -1
	}
	if bestStart < 0 {
		return nil
	}
	idx := make([]int, bestLen)
	for i := range idx {
		idx[i] = bestStart + i
	}
	return idx
}

// EstimateBurnerPowerPerRun is the finer-grained calibration variant used
// for validation: instead of whole days it segments the series by burner
// on/off transitions, solves the balance per individual run, and returns the
// median across runs. The median is deliberate — an occasional anomalous
// run (a pump overlap, a truncated edge) shifts a mean but not a median.
//
// Runs shorter than MinRunDuration and runs touching any above-threshold
// radiator flow are discarded. With no valid runs the configured fallback is
// returned, same as the primary estimator.
func EstimateBurnerPowerPerRun(s *series.Series, cfg Config) Calibration {
	if s.Len() == 0 || s.BurnerActive == nil {
		return Calibration{PowerKW: cfg.FallbackBurnerPower, Strategy: StrategyFallback}
	}

	elapsed := s.ElapsedSeconds(cfg.NominalPeriod)
	var estimates []float64

	i := 0
	for i < s.Len() {
		if !s.BurnerActive[i] {
			i++
			continue
		}
		start := i
		for i < s.Len() && s.BurnerActive[i] {
			i++
		}
		end := i // exclusive

		if p, ok := runPower(s, start, end, elapsed, cfg); ok {
			estimates = append(estimates, p)
		}
	}

	if len(estimates) == 0 {
		return Calibration{PowerKW: cfg.FallbackBurnerPower, Strategy: StrategyFallback}
	}

	sort.Float64s(estimates)
	med := estimates[len(estimates)/2]
	if len(estimates)%2 == 0 {
		med = (estimates[len(estimates)/2-1] + estimates[len(estimates)/2]) / 2
	}

	return Calibration{
		PowerKW:  med,
		Strategy: StrategyPerRunMedian,
		RunsUsed: len(estimates),
	}
}

// runPower solves the balance for a single burner run [start, end).
func runPower(s *series.Series, start, end int, elapsed []float64, cfg Config) (float64, bool) {
	runTime := 0.0
	dhwEnergyKJ := 0.0
	for i := start; i < end; i++ {
		if f := s.RadiatorFlowRate[i]; !math.IsNaN(f) && f > cfg.IdleFlowThreshold {
			return 0, false // mixed run, radiator drew unknown energy
		}
		dt := elapsed[i]
		if i == start {
			dt = cfg.NominalPeriod.Seconds()
		}
		runTime += dt
		p := CircuitPowerKW(nanToZero(s.DHWFlowRate[i]), s.DHWFlowTemp[i], s.DHWReturnTemp[i], cfg)
		if !math.IsNaN(p) {
			dhwEnergyKJ += p * dt
		}
	}

	if runTime < cfg.MinRunDuration.Seconds() {
		return 0, false
	}

	idx := make([]int, end-start)
	for j := range idx {
		idx[j] = start + j
	}
	tStart, okStart := firstFinite(s.BoilerFlowTemp, idx)
	tEnd, okEnd := lastFinite(s.BoilerFlowTemp, idx)
	storeDeltaKJ := 0.0
	if okStart && okEnd {
		storeDeltaKJ = cfg.BoilerMass() * (cfg.WaterSpecificHeat / 1000.0) * (tEnd - tStart)
	}

	power := (dhwEnergyKJ + storeDeltaKJ) / runTime
	if !isFinitePositive(power) {
		return 0, false
	}
	return power, true
}

func firstFinite(values []float64, idx []int) (float64, bool) {
	for _, i := range idx {
		if !math.IsNaN(values[i]) {
			return values[i], true
		}
	}
	return 0, false
}

func lastFinite(values []float64, idx []int) (float64, bool) {
	for j := len(idx) - 1; j >= 0; j-- {
		if !math.IsNaN(values[idx[j]]) {
			return values[idx[j]], true
		}
	}
	return 0, false
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
