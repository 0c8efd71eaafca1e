// Package analysis implements the energy-inference pipeline for a hydronic
// home heating installation: burner status inference from temperature
// gradients, burner power calibration via an energy balance over
// radiator-idle windows, per-circuit energy decomposition with a residual
// underfloor term, and steady-state classification for curve fitting.
//
// The pipeline is a batch transform over a complete historical series. Each
// stage consumes a series and returns an augmented copy; nothing is mutated
// in place and no stage re-derives a column a previous stage attached.
package analysis

import (
	"fmt"
	"time"
)

// Config holds every tunable the pipeline uses: plant physics, measured
// transport delays, and detection thresholds. It is passed into each stage
// explicitly so tests can vary physical parameters deterministically; there
// is no package-level state.
type Config struct {
	// NominalPeriod is the expected sampling period. It is only used where
	// the actual series cannot answer: the elapsed time of a window's first
	// sample and the fallback when a series is too short to measure its own
	// period.
	NominalPeriod time.Duration

	// BurnerStartDelay and BurnerStopDelay are the measured transport delays
	// between the burner actuator and the detectable flow-temperature
	// response. The status shift uses their average; the asymmetry is a known
	// approximation since edges cannot be attributed without the answer.
	BurnerStartDelay time.Duration
	BurnerStopDelay  time.Duration

	// GradientThreshold is the smoothed-derivative noise floor in °C/s above
	// which the burner is considered firing.
	GradientThreshold float64

	// GradientSmoothing is the centered averaging window applied to the raw
	// temperature derivative before thresholding.
	GradientSmoothing time.Duration

	// IdleFlowThreshold is the flow rate in L/h below which a circuit pump
	// is considered off (sensor noise floor).
	IdleFlowThreshold float64

	// MinRunDuration is the minimum burner-active duration a calibration
	// window must reach to be trusted.
	MinRunDuration time.Duration

	// FallbackBurnerPower is returned in kW when no usable calibration data
	// exists. Calibration is advisory: insufficient data degrades accuracy,
	// never availability.
	FallbackBurnerPower float64

	// ResidualSmoothing is the centered averaging window applied to the
	// underfloor residual to suppress noise inherited from the stored-power
	// derivative. Zero disables smoothing, leaving the raw balance exposed.
	ResidualSmoothing time.Duration

	// Steady-state classification.
	SteadyRoomTolerance float64       // °C, max rolling stddev of room temp
	SteadyRoomWindow    time.Duration // room temp stddev window
	SteadyFlowWindow    time.Duration // flow temp smoothing window
	SteadyFlowSlope     float64       // °C per sample-step, max smoothed trend

	// Plant physics. Boiler thermal mass is derived from volume and density.
	WaterDensity      float64 // kg/m³
	WaterSpecificHeat float64 // J/(kg·K)
	BoilerVolume      float64 // L
}

// DefaultConfig returns the configuration matching the measured installation.
func DefaultConfig() Config {
	return Config{
		NominalPeriod:       10 * time.Second,
		BurnerStartDelay:    60 * time.Second,
		BurnerStopDelay:     120 * time.Second,
		GradientThreshold:   0.01,
		GradientSmoothing:   60 * time.Second,
		IdleFlowThreshold:   1.0,
		MinRunDuration:      60 * time.Second,
		FallbackBurnerPower: 20.0,
		ResidualSmoothing:   2 * time.Minute,
		SteadyRoomTolerance: 0.5,
		SteadyRoomWindow:    60 * time.Minute,
		SteadyFlowWindow:    50 * time.Minute,
		SteadyFlowSlope:     0.05,
		WaterDensity:        997.0,
		WaterSpecificHeat:   4186.0,
		BoilerVolume:        30.0,
	}
}

// BoilerMass returns the boiler water mass in kg.
func (c Config) BoilerMass() float64 {
	return c.BoilerVolume * c.WaterDensity / 1000.0
}

// Validate rejects configurations that would make the balance equations
// meaningless.
func (c Config) Validate() error {
	if c.NominalPeriod <= 0 {
		return fmt.Errorf("nominal period must be > 0")
	}
	if c.WaterDensity <= 0 || c.WaterSpecificHeat <= 0 {
		return fmt.Errorf("water density and specific heat must be > 0")
	}
	if c.BoilerVolume < 0 {
		return fmt.Errorf("boiler volume cannot be negative")
	}
	if c.GradientThreshold <= 0 {
		return fmt.Errorf("gradient threshold must be > 0")
	}
	if c.IdleFlowThreshold < 0 {
		return fmt.Errorf("idle flow threshold cannot be negative")
	}
	if c.FallbackBurnerPower <= 0 {
		return fmt.Errorf("fallback burner power must be > 0")
	}
	return nil
}

// windowSamples converts an elapsed-time window into a sample count using
// the series' actual sampling period. Never returns less than 1.
func windowSamples(window, actualPeriod time.Duration) int {
	if actualPeriod <= 0 {
		return 1
	}
	n := int(window / actualPeriod)
	if n < 1 {
		n = 1
	}
	return n
}
