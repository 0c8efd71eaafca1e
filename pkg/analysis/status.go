package analysis

import (
	"math"

	"github.com/HatiCode/hydronic/pkg/series"
)

// InferBurnerStatus derives the burner-active boolean from the boiler flow
// temperature and attaches it as BurnerActive on a copy of the series.
//
// The burner state is not a sensor reading: the installation exposes no
// actuator signal, so firing is inferred from the temperature response.
//
//  1. First-order derivative of boiler flow temperature per second. The
//     first sample's elapsed time defaults to the nominal period.
//  2. Centered moving average over GradientSmoothing to keep control and
//     sensor noise from flipping the boolean spuriously. The smoothing
//     trades edge timing precision for robustness.
//  3. Threshold: active where the smoothed derivative exceeds
//     GradientThreshold. Undefined values at the window edges default to
//     inactive.
//  4. Backward shift by the average of the start and stop transport delays,
//     converted to samples with the series' actual period, so the flag
//     approximates actuator command time rather than thermal response time.
//     Samples exposed at the trailing edge default to inactive.
//
// The shift is applied exactly once, to the thresholded signal; it is never
// re-derived from already-shifted data. InferBurnerStatus never fails:
// absent or malformed temperature data propagates as an all-inactive flag.
func InferBurnerStatus(s *series.Series, cfg Config) *series.Series {
	out := s.Clone()
	n := out.Len()
	if n == 0 {
		out.BurnerActive = []bool{}
		return out
	}

	elapsed := out.ElapsedSeconds(cfg.NominalPeriod)
	gradient := make([]float64, n)
	gradient[0] = math.NaN() // no previous temperature to diff against
	for i := 1; i < n; i++ {
		dt := elapsed[i]
		if dt <= 0 {
			dt = cfg.NominalPeriod.Seconds()
		}
		gradient[i] = (out.BoilerFlowTemp[i] - out.BoilerFlowTemp[i-1]) / dt
	}

	period := out.SamplingPeriod(cfg.NominalPeriod)
	smoothWindow := windowSamples(cfg.GradientSmoothing, period)
	smoothed := series.RollingMeanCentered(gradient, smoothWindow)

	active := make([]bool, n)
	for i, g := range smoothed {
		// NaN compares false, which is exactly the inactive default.
		active[i] = g > cfg.GradientThreshold
	}

	avgDelay := (cfg.BurnerStartDelay + cfg.BurnerStopDelay) / 2
	periods := int(avgDelay / period)
	out.BurnerActive = series.ShiftBoolBackward(active, periods)

	return out
}
