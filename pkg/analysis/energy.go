package analysis

import (
	"math"

	"github.com/HatiCode/hydronic/pkg/series"
)

// DecomposeEnergy attaches per-sample power columns for every circuit plus
// the generated and stored terms, such that at every sample
//
//	generated = dhw + radiator + underfloor + stored
//
// holds pre-smoothing by construction: underfloor is the only circuit
// without instrumentation and is defined as the balance residual.
//
// Column by column:
//   - DHW: circuit power from the DHW pump flow and the tank supply/return
//     temperature pair.
//   - Radiator: circuit power from the radiator flow, with the boiler flow
//     temperature standing in for the missing dedicated supply sensor.
//   - Generated: the calibrated burner power while BurnerActive, else zero.
//     A step function, deliberately unsmoothed.
//   - Stored: boiler mass × cp × per-sample temperature delta / elapsed
//     seconds. Negative while the boiler cools.
//   - Underfloor: generated − dhw − radiator − stored, then smoothed with a
//     centered window (ResidualSmoothing) to suppress derivative noise from
//     the stored term; positions the window cannot cover default to zero.
//     With ResidualSmoothing zero the raw residual is kept as-is.
//
// The residual is never clipped: transient mismatch between burner and
// circuit delays can push it briefly negative, and that implausibility is
// kept visible for diagnostics instead of being silently repaired.
//
// The input must already carry BurnerActive.
func DecomposeEnergy(s *series.Series, burnerPowerKW float64, cfg Config) *series.Series {
	out := s.Clone()
	n := out.Len()

	powerDHW := make([]float64, n)
	powerRad := make([]float64, n)
	powerGen := make([]float64, n)
	powerStored := make([]float64, n)
	residual := make([]float64, n)

	elapsed := out.ElapsedSeconds(cfg.NominalPeriod)
	mass := cfg.BoilerMass()

	for i := 0; i < n; i++ {
		powerDHW[i] = CircuitPowerKW(out.DHWFlowRate[i], out.DHWFlowTemp[i], out.DHWReturnTemp[i], cfg)
		powerRad[i] = CircuitPowerKW(out.RadiatorFlowRate[i], out.BoilerFlowTemp[i], out.RadiatorReturnTemp[i], cfg)

		if out.BurnerActive != nil && out.BurnerActive[i] {
			powerGen[i] = burnerPowerKW
		}

		// The first sample has no predecessor: its temperature delta
		// defaults to zero, its elapsed time to the nominal period.
		tempDelta := 0.0
		if i > 0 {
			tempDelta = out.BoilerFlowTemp[i] - out.BoilerFlowTemp[i-1]
		}
		dt := elapsed[i]
		if dt <= 0 {
			dt = cfg.NominalPeriod.Seconds()
		}
		powerStored[i] = mass * cfg.WaterSpecificHeat * tempDelta / dt / 1000.0

		residual[i] = powerGen[i] - powerDHW[i] - powerRad[i] - powerStored[i]
	}

	if cfg.ResidualSmoothing > 0 {
		period := out.SamplingPeriod(cfg.NominalPeriod)
		window := windowSamples(cfg.ResidualSmoothing, period)
		smoothed := series.RollingMeanCentered(residual, window)
		for i, v := range smoothed {
			if math.IsNaN(v) {
				smoothed[i] = 0
			}
		}
		residual = smoothed
	}

	out.PowerDHW = powerDHW
	out.PowerRadiator = powerRad
	out.PowerGenerated = powerGen
	out.PowerStored = powerStored
	out.PowerUnderfloor = residual
	return out
}
