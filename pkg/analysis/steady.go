package analysis

import (
	"math"

	"github.com/HatiCode/hydronic/pkg/series"
)

// DetectSteadyState flags samples suitable for a steady-state
// flow-vs-outside-temperature curve fit and attaches the result as
// SteadyState on a copy of the series.
//
// Two independent criteria, both converted from durations to sample counts
// with the series' actual period:
//
//   - Stable room: the trailing standard deviation of the average room
//     temperature over SteadyRoomWindow stays below SteadyRoomTolerance.
//   - Stable flow trend: the boiler flow temperature, smoothed over
//     SteadyFlowWindow (the burner cycles, so the raw signal always moves),
//     has a per-step derivative magnitude below SteadyFlowSlope.
//
// The flag is the conjunction of the two. Positions where either window is
// undefined — series edges, or missing room/flow readings — default to not
// steady rather than propagating the undefined value; missing environmental
// enrichment therefore just classifies fewer samples as steady.
func DetectSteadyState(s *series.Series, cfg Config) *series.Series {
	out := s.Clone()
	n := out.Len()
	steady := make([]bool, n)
	if n == 0 {
		out.SteadyState = steady
		return out
	}

	period := out.SamplingPeriod(cfg.NominalPeriod)

	roomWindow := windowSamples(cfg.SteadyRoomWindow, period)
	roomStd := series.RollingStdTrailing(out.RoomTempAvg, roomWindow)

	flowWindow := windowSamples(cfg.SteadyFlowWindow, period)
	flowSmooth := series.RollingMeanTrailing(out.BoilerFlowTemp, flowWindow)
	flowDeriv := series.Diff(flowSmooth)

	for i := 0; i < n; i++ {
		// NaN comparisons are false, which is the not-steady default.
		stableRoom := roomStd[i] < cfg.SteadyRoomTolerance
		stableFlow := math.Abs(flowDeriv[i]) < cfg.SteadyFlowSlope
		steady[i] = stableRoom && stableFlow
	}

	out.SteadyState = steady
	return out
}
