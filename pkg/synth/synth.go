// Package synth generates synthetic heating installation data for demos and
// tests: a hysteresis-controlled burner heating a small thermal store, a
// morning/evening domestic hot water demand pattern, winter-only radiator
// demand, sensor noise, and one gap of missing readings.
//
// The generator simulates forward with a simple Euler integration of the
// boiler energy balance, so the produced series obeys the same conservation
// law the pipeline inverts — which makes it a meaningful end-to-end fixture
// rather than arbitrary noise.
package synth

import (
	"math"
	"math/rand"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

// Options control the generated dataset.
type Options struct {
	Start      time.Time     // first timestamp; zero means 2024-06-01T00:00Z
	Days       int           // total days; <= 0 means 5
	SummerDays int           // leading days without radiator demand
	Period     time.Duration // sampling period; <= 0 means 10s
	Seed       int64         // rng seed, fixed for reproducible fixtures
	NoGap      bool          // suppress the missing-data gap
}

// Plant parameters the simulation uses. These intentionally differ slightly
// from the analyzer's configured physics (mass flow taken as volume flow,
// for one) so calibration tests exercise tolerance rather than tautology.
const (
	burnerPowerKW   = 25.0
	burnerOnBelow   = 55.0
	burnerOffAbove  = 75.0
	dhwFlowLPerH    = 1000.0
	radFlowLPerH    = 800.0
	loadDeltaK      = 10.0
	underfloorKW    = 3.0
	boilerMassKg    = 30.0
	specificHeatKJ  = 4.186 // kJ/(kg·K)
	tempNoiseStdDev = 0.05
)

// Generate builds a synthetic series.
func Generate(opts Options) *series.Series {
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	if opts.Days <= 0 {
		opts.Days = 5
	}
	if opts.SummerDays < 0 {
		opts.SummerDays = 0
	}
	if opts.Period <= 0 {
		opts.Period = 10 * time.Second
	}

	samplesPerDay := int(24 * time.Hour / opts.Period)
	n := opts.Days * samplesPerDay
	s := series.New(n)
	rng := rand.New(rand.NewSource(opts.Seed))

	boilerTemp := 65.0
	burnerOn := false
	stepSec := opts.Period.Seconds()

	for i := 0; i < n; i++ {
		ts := opts.Start.Add(time.Duration(i) * opts.Period)
		s.Timestamps[i] = ts

		day := i / samplesPerDay
		hour := ts.Hour()
		isSummer := day < opts.SummerDays

		dhwActive := (hour >= 6 && hour <= 8) || (hour >= 18 && hour <= 20)
		heatingActive := !isSummer && hour >= 6 && hour <= 22

		dhwFlow := 0.0
		if dhwActive {
			dhwFlow = dhwFlowLPerH
		}
		radFlow := 0.0
		if heatingActive {
			radFlow = radFlowLPerH
		}

		// Hysteresis control on the store temperature.
		if boilerTemp < burnerOnBelow {
			burnerOn = true
		} else if boilerTemp > burnerOffAbove {
			burnerOn = false
		}

		// Euler step of the store energy balance. Loads draw from the store
		// whenever their circuit runs; the burner feeds it while firing.
		powerIn := 0.0
		if burnerOn {
			powerIn = burnerPowerKW
		}
		powerOut := circuitLoadKW(dhwFlow) + circuitLoadKW(radFlow)
		if heatingActive {
			powerOut += underfloorKW
		}
		boilerTemp += (powerIn - powerOut) * stepSec / (boilerMassKg * specificHeatKJ)

		s.DHWFlowRate[i] = dhwFlow
		s.RadiatorFlowRate[i] = radFlow

		// Outside temperature: base by season, daily sine, small noise.
		base := 5.0
		if isSummer {
			base = 20.0
		}
		dayFraction := float64(hour)/24.0 + float64(ts.Minute())/(24.0*60.0)
		s.OutsideTemp[i] = base - 5.0*math.Cos(2*math.Pi*dayFraction) + rng.NormFloat64()*0.1

		s.RoomTempAvg[i] = 20.0 + rng.NormFloat64()*0.1

		s.BoilerFlowTemp[i] = boilerTemp + rng.NormFloat64()*tempNoiseStdDev
		s.BoilerReturnTemp[i] = s.BoilerFlowTemp[i] - 5.0

		s.DHWFlowTemp[i] = s.BoilerFlowTemp[i] - 1.0
		if dhwFlow > 0 {
			s.DHWReturnTemp[i] = s.DHWFlowTemp[i] - loadDeltaK
		} else {
			s.DHWReturnTemp[i] = 50.0
		}

		if radFlow > 0 {
			s.RadiatorReturnTemp[i] = s.BoilerFlowTemp[i] - loadDeltaK
		} else {
			s.RadiatorReturnTemp[i] = 20.0
		}

		if heatingActive {
			s.UnderfloorFlowTemp[i] = 35.0
			s.UnderfloorReturnTemp[i] = 30.0
		} else {
			s.UnderfloorFlowTemp[i] = 20.0
			s.UnderfloorReturnTemp[i] = 20.0
		}
	}

	if !opts.NoGap {
		insertGap(s, n*2/5, n*2/5+n/50)
	}

	return s
}

// circuitLoadKW is the simulated heat draw of a circuit at the fixed
// temperature drop the generator imposes.
func circuitLoadKW(flowLPerH float64) float64 {
	if flowLPerH <= 0 {
		return 0
	}
	massFlow := flowLPerH / 3600.0 // kg/s, water at 1 kg/L
	return massFlow * specificHeatKJ * loadDeltaK
}

// insertGap blanks every sensor column on [from, to). Timestamps stay in
// place: the source delivered rows, the sensors did not.
func insertGap(s *series.Series, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > s.Len() {
		to = s.Len()
	}
	nan := math.NaN()
	for i := from; i < to; i++ {
		s.BoilerFlowTemp[i] = nan
		s.BoilerReturnTemp[i] = nan
		s.DHWFlowRate[i] = nan
		s.DHWFlowTemp[i] = nan
		s.DHWReturnTemp[i] = nan
		s.RadiatorFlowRate[i] = nan
		s.RadiatorReturnTemp[i] = nan
		s.UnderfloorFlowTemp[i] = nan
		s.UnderfloorReturnTemp[i] = nan
		s.OutsideTemp[i] = nan
		s.RoomTempAvg[i] = nan
	}
}
