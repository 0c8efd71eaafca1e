// Package series defines the sample series that flows through the analysis
// pipeline: a time-indexed record of flow rates, temperatures, and the
// derived columns each pipeline stage attaches.
//
// The series is columnar (struct of slices) and immutable by convention:
// stages call Clone() and return an augmented copy rather than mutating
// their input. Missing readings are represented as NaN, never zero — a zero
// flow rate is a real measurement, an absent one is not.
package series

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Series is an ordered multivariate sample sequence with strictly increasing
// timestamps. Raw sensor columns are populated by a source; derived columns
// (BurnerActive, Power*, SteadyState) are nil until the owning pipeline stage
// attaches them.
type Series struct {
	Timestamps []time.Time

	// Boiler primary loop.
	BoilerFlowTemp   []float64 // °C, supply side
	BoilerReturnTemp []float64 // °C

	// Domestic hot water circuit.
	DHWFlowRate   []float64 // L/h, charging pump
	DHWFlowTemp   []float64 // °C, supply into the tank coil
	DHWReturnTemp []float64 // °C, combined return

	// Radiator circuit. Radiators share the primary loop, so there is no
	// dedicated supply sensor; BoilerFlowTemp stands in for it.
	RadiatorFlowRate   []float64 // L/h
	RadiatorReturnTemp []float64 // °C, combined return

	// Underfloor circuit has no flow sensor; its power is only ever derived.
	UnderfloorFlowTemp   []float64 // °C, after the mixing valve
	UnderfloorReturnTemp []float64 // °C

	// Environment.
	OutsideTemp []float64 // °C
	RoomTempAvg []float64 // °C, mean over instrumented rooms

	// Derived: attached by analysis.InferBurnerStatus.
	BurnerActive []bool

	// Derived: attached by analysis.DecomposeEnergy. All in kW.
	PowerDHW        []float64
	PowerRadiator   []float64
	PowerUnderfloor []float64
	PowerGenerated  []float64
	PowerStored     []float64

	// Derived: attached by analysis.DetectSteadyState.
	SteadyState []bool
}

// New returns a Series with all raw sensor columns allocated to n samples
// and initialized to NaN (no reading). Timestamps are left zero; the caller
// fills them.
func New(n int) *Series {
	s := &Series{Timestamps: make([]time.Time, n)}
	for _, col := range []*[]float64{
		&s.BoilerFlowTemp, &s.BoilerReturnTemp,
		&s.DHWFlowRate, &s.DHWFlowTemp, &s.DHWReturnTemp,
		&s.RadiatorFlowRate, &s.RadiatorReturnTemp,
		&s.UnderfloorFlowTemp, &s.UnderfloorReturnTemp,
		&s.OutsideTemp, &s.RoomTempAvg,
	} {
		c := make([]float64, n)
		for i := range c {
			c[i] = math.NaN()
		}
		*col = c
	}
	return s
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Timestamps) }

// Validate checks the structural invariants a source must deliver:
// strictly increasing timestamps and equal column lengths. A violation is
// an input error the pipeline refuses to guess around.
func (s *Series) Validate() error {
	n := s.Len()
	if n == 0 {
		return fmt.Errorf("series is empty")
	}

	for name, col := range s.Columns() {
		if col != nil && len(col) != n {
			return fmt.Errorf("column %s has %d samples, want %d", name, len(col), n)
		}
	}

	for i := 1; i < n; i++ {
		if !s.Timestamps[i].After(s.Timestamps[i-1]) {
			return fmt.Errorf("timestamps not strictly increasing at index %d (%s -> %s)",
				i, s.Timestamps[i-1].Format(time.RFC3339), s.Timestamps[i].Format(time.RFC3339))
		}
	}

	return nil
}

// Clone returns a deep copy. Derived columns are copied too when present.
func (s *Series) Clone() *Series {
	out := &Series{
		Timestamps:           append([]time.Time(nil), s.Timestamps...),
		BoilerFlowTemp:       cloneFloats(s.BoilerFlowTemp),
		BoilerReturnTemp:     cloneFloats(s.BoilerReturnTemp),
		DHWFlowRate:          cloneFloats(s.DHWFlowRate),
		DHWFlowTemp:          cloneFloats(s.DHWFlowTemp),
		DHWReturnTemp:        cloneFloats(s.DHWReturnTemp),
		RadiatorFlowRate:     cloneFloats(s.RadiatorFlowRate),
		RadiatorReturnTemp:   cloneFloats(s.RadiatorReturnTemp),
		UnderfloorFlowTemp:   cloneFloats(s.UnderfloorFlowTemp),
		UnderfloorReturnTemp: cloneFloats(s.UnderfloorReturnTemp),
		OutsideTemp:          cloneFloats(s.OutsideTemp),
		RoomTempAvg:          cloneFloats(s.RoomTempAvg),
		PowerDHW:             cloneFloats(s.PowerDHW),
		PowerRadiator:        cloneFloats(s.PowerRadiator),
		PowerUnderfloor:      cloneFloats(s.PowerUnderfloor),
		PowerGenerated:       cloneFloats(s.PowerGenerated),
		PowerStored:          cloneFloats(s.PowerStored),
	}
	if s.BurnerActive != nil {
		out.BurnerActive = append([]bool(nil), s.BurnerActive...)
	}
	if s.SteadyState != nil {
		out.SteadyState = append([]bool(nil), s.SteadyState...)
	}
	return out
}

// ElapsedSeconds returns the per-sample elapsed time since the previous
// sample. The first sample has no predecessor and defaults to the nominal
// period, which keeps time-weighted sums and derivative denominators finite.
func (s *Series) ElapsedSeconds(nominal time.Duration) []float64 {
	n := s.Len()
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = nominal.Seconds()
	for i := 1; i < n; i++ {
		out[i] = s.Timestamps[i].Sub(s.Timestamps[i-1]).Seconds()
	}
	return out
}

// SamplingPeriod returns the actual sampling period of the series as the
// median of consecutive timestamp deltas. The median is robust against the
// occasional multi-minute gap that would skew a mean; window lengths given
// as durations are converted to sample counts with this value, not with an
// assumed nominal rate.
func (s *Series) SamplingPeriod(fallback time.Duration) time.Duration {
	n := s.Len()
	if n < 2 {
		return fallback
	}
	deltas := make([]time.Duration, 0, n-1)
	for i := 1; i < n; i++ {
		deltas = append(deltas, s.Timestamps[i].Sub(s.Timestamps[i-1]))
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	med := deltas[len(deltas)/2]
	if med <= 0 {
		return fallback
	}
	return med
}

// RawCopy returns a copy with only the raw sensor columns, all derived
// columns stripped. Re-running the pipeline on a RawCopy of its own output
// reproduces the derived columns exactly.
func (s *Series) RawCopy() *Series {
	out := s.Clone()
	out.BurnerActive = nil
	out.PowerDHW = nil
	out.PowerRadiator = nil
	out.PowerUnderfloor = nil
	out.PowerGenerated = nil
	out.PowerStored = nil
	out.SteadyState = nil
	return out
}

// Columns maps the snake_case sensor names used in transport and storage
// formats to the raw measurement slices. Derived columns are not included.
func (s *Series) Columns() map[string][]float64 {
	return map[string][]float64{
		"boiler_flow_temp":       s.BoilerFlowTemp,
		"boiler_return_temp":     s.BoilerReturnTemp,
		"dhw_flow_rate":          s.DHWFlowRate,
		"dhw_flow_temp":          s.DHWFlowTemp,
		"dhw_return_temp":        s.DHWReturnTemp,
		"radiator_flow_rate":     s.RadiatorFlowRate,
		"radiator_return_temp":   s.RadiatorReturnTemp,
		"underfloor_flow_temp":   s.UnderfloorFlowTemp,
		"underfloor_return_temp": s.UnderfloorReturnTemp,
		"outside_temp":           s.OutsideTemp,
		"room_temp_avg":          s.RoomTempAvg,
	}
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	return append([]float64(nil), in...)
}
