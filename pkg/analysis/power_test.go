package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

func TestCircuitPowerKW(t *testing.T) {
	cfg := DefaultConfig()
	// 1000 L/h at a 10 K drop with the default water properties.
	wantRef := 1000.0 / 1000.0 / 3600.0 * cfg.WaterDensity * cfg.WaterSpecificHeat * 10.0 / 1000.0

	tests := []struct {
		name           string
		flow, sup, ret float64
		want           float64
	}{
		{"reference point", 1000, 60, 50, wantRef},
		{"zero flow", 0, 60, 50, 0},
		{"zero flow with missing temps", 0, math.NaN(), math.NaN(), 0},
		{"zero delta", 500, 55, 55, 0},
		{"half flow halves power", 500, 60, 50, wantRef / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircuitPowerKW(tt.flow, tt.sup, tt.ret, cfg)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("CircuitPowerKW(%v, %v, %v) = %v, want %v", tt.flow, tt.sup, tt.ret, got, tt.want)
			}
		})
	}
}

func TestCircuitPowerKWSwapNegates(t *testing.T) {
	cfg := DefaultConfig()
	p := CircuitPowerKW(800, 62, 48, cfg)
	q := CircuitPowerKW(800, 48, 62, cfg)
	if math.Abs(p+q) > 1e-12 {
		t.Fatalf("swapping supply and return: %v vs %v, want exact negation", p, q)
	}
}

// calibrationFixture builds a radiator-idle series where the burner runs with
// the given duty cycle and the DHW circuit draws a fixed load only while the
// burner fires. Because the drawn energy and the run time then cover the same
// samples, the balance solves to exactly the per-sample DHW power — for any
// duty cycle. The boiler temperature is constant so the store term vanishes.
func calibrationFixture(n, dutyMod int) (*series.Series, float64) {
	cfg := DefaultConfig()
	s := newTestSeries(n)
	fill(s.BoilerFlowTemp, 65)
	fill(s.RadiatorFlowRate, 0)
	s.BurnerActive = make([]bool, n)
	for i := 0; i < n; i++ {
		if i%dutyMod == 0 {
			s.BurnerActive[i] = true
			s.DHWFlowRate[i] = 1000
			s.DHWFlowTemp[i] = 60
			s.DHWReturnTemp[i] = 50
		} else {
			s.DHWFlowRate[i] = 0
		}
	}
	return s, CircuitPowerKW(1000, 60, 50, cfg)
}

func TestEstimateBurnerPowerSummerDays(t *testing.T) {
	cfg := DefaultConfig()
	for _, duty := range []struct {
		name string
		mod  int
	}{
		{"50 percent duty", 2},
		{"25 percent duty", 4},
	} {
		t.Run(duty.name, func(t *testing.T) {
			s, want := calibrationFixture(1000, duty.mod)
			cal := EstimateBurnerPower(s, cfg)

			if cal.Strategy != StrategySummerDays {
				t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategySummerDays)
			}
			if math.Abs(cal.PowerKW-want) > 1e-9 {
				t.Fatalf("PowerKW = %v, want %v", cal.PowerKW, want)
			}
			if cal.Samples != s.Len() {
				t.Errorf("Samples = %d, want %d", cal.Samples, s.Len())
			}
			if cal.RunTimeS <= 0 {
				t.Errorf("RunTimeS = %v, want > 0", cal.RunTimeS)
			}
		})
	}
}

func TestEstimateBurnerPowerIdleBlock(t *testing.T) {
	// Radiator runs for the first 50 samples, then idles for the rest of the
	// same day: no whole summer day exists, so the estimator must pick the
	// trailing idle block.
	cfg := DefaultConfig()
	s, want := calibrationFixture(600, 2)
	for i := 0; i < 50; i++ {
		s.RadiatorFlowRate[i] = 500
		s.BurnerActive[i] = false
		s.DHWFlowRate[i] = 0
	}

	cal := EstimateBurnerPower(s, cfg)
	if cal.Strategy != StrategyIdleBlock {
		t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategyIdleBlock)
	}
	if math.Abs(cal.PowerKW-want) > 1e-9 {
		t.Fatalf("PowerKW = %v, want %v", cal.PowerKW, want)
	}
	if cal.Samples != 550 {
		t.Errorf("Samples = %d, want 550", cal.Samples)
	}
}

func TestEstimateBurnerPowerFallback(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *series.Series)
	}{
		{
			"radiator never idle",
			func(s *series.Series) { fill(s.RadiatorFlowRate, 500) },
		},
		{
			"burner never fires",
			func(s *series.Series) {
				for i := range s.BurnerActive {
					s.BurnerActive[i] = false
				}
			},
		},
		{
			"no burner column",
			func(s *series.Series) { s.BurnerActive = nil },
		},
	}
	cfg := DefaultConfig()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := calibrationFixture(600, 2)
			tt.mutate(s)
			cal := EstimateBurnerPower(s, cfg)
			if cal.Strategy != StrategyFallback {
				t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategyFallback)
			}
			if cal.PowerKW != cfg.FallbackBurnerPower {
				t.Fatalf("PowerKW = %v, want fallback %v", cal.PowerKW, cfg.FallbackBurnerPower)
			}
		})
	}
}

func TestEstimateBurnerPowerPerRun(t *testing.T) {
	cfg := DefaultConfig()
	s := newTestSeries(200)
	fill(s.BoilerFlowTemp, 65)
	fill(s.RadiatorFlowRate, 0)
	fill(s.DHWFlowRate, 0)
	s.BurnerActive = make([]bool, s.Len())

	markRun := func(start, end int, radFlow float64) {
		for i := start; i < end; i++ {
			s.BurnerActive[i] = true
			s.DHWFlowRate[i] = 1000
			s.DHWFlowTemp[i] = 60
			s.DHWReturnTemp[i] = 50
			s.RadiatorFlowRate[i] = radFlow
		}
	}
	markRun(10, 30, 0)     // valid, 200s
	markRun(50, 80, 0)     // valid, 300s
	markRun(100, 103, 0)   // too short, discarded
	markRun(120, 150, 500) // radiator active, discarded

	cal := EstimateBurnerPowerPerRun(s, cfg)
	if cal.Strategy != StrategyPerRunMedian {
		t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategyPerRunMedian)
	}
	if cal.RunsUsed != 2 {
		t.Fatalf("RunsUsed = %d, want 2", cal.RunsUsed)
	}
	want := CircuitPowerKW(1000, 60, 50, cfg)
	if math.Abs(cal.PowerKW-want) > 1e-9 {
		t.Fatalf("PowerKW = %v, want %v", cal.PowerKW, want)
	}
}

func TestEstimateBurnerPowerPerRunNoValidRuns(t *testing.T) {
	cfg := DefaultConfig()
	s := newTestSeries(50)
	fill(s.BoilerFlowTemp, 65)
	fill(s.RadiatorFlowRate, 0)
	fill(s.DHWFlowRate, 0)
	s.BurnerActive = make([]bool, s.Len())

	cal := EstimateBurnerPowerPerRun(s, cfg)
	if cal.Strategy != StrategyFallback {
		t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategyFallback)
	}
	if cal.PowerKW != cfg.FallbackBurnerPower {
		t.Fatalf("PowerKW = %v, want %v", cal.PowerKW, cfg.FallbackBurnerPower)
	}
}

// A radiator-idle subset with almost no burner time must fall through to the
// fallback instead of dividing by a near-zero run time.
func TestEstimateBurnerPowerTooLittleRunTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRunDuration = 10 * time.Minute
	s, _ := calibrationFixture(20, 2)

	cal := EstimateBurnerPower(s, cfg)
	if cal.Strategy != StrategyFallback {
		t.Fatalf("strategy = %q, want %q", cal.Strategy, StrategyFallback)
	}
}
