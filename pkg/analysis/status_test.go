package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/HatiCode/hydronic/pkg/series"
)

// newTestSeries builds an n-sample series at a 10s cadence with every
// sensor column left NaN. Tests fill in only what they assert on.
func newTestSeries(n int) *series.Series {
	s := series.New(n)
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range s.Timestamps {
		s.Timestamps[i] = base.Add(time.Duration(i) * 10 * time.Second)
	}
	return s
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}

func TestInferBurnerStatusStepRise(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurnerStartDelay = 0
	cfg.BurnerStopDelay = 0

	// Flat at 50 for 20 samples, then a steady 0.05 °C/s climb. Gradient
	// smoothing spans 6 samples, so the flag must hold false deep in the
	// flat region and true deep in the climb; only the boundary band in
	// between is timing-sensitive.
	s := newTestSeries(60)
	for i := range s.BoilerFlowTemp {
		if i < 20 {
			s.BoilerFlowTemp[i] = 50
		} else {
			s.BoilerFlowTemp[i] = 50 + 0.5*float64(i-19)
		}
	}

	out := InferBurnerStatus(s, cfg)
	if len(out.BurnerActive) != s.Len() {
		t.Fatalf("BurnerActive length = %d, want %d", len(out.BurnerActive), s.Len())
	}
	for i := 0; i < 17; i++ {
		if out.BurnerActive[i] {
			t.Errorf("sample %d: active during flat region", i)
		}
	}
	for i := 23; i < 57; i++ {
		if !out.BurnerActive[i] {
			t.Errorf("sample %d: inactive during steady climb", i)
		}
	}
}

func TestInferBurnerStatusNeverActive(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		temp func(i int) float64
	}{
		{"flat", func(i int) float64 { return 60 }},
		{"cooling", func(i int) float64 { return 60 - 0.02*float64(i) }},
		{"all missing", func(i int) float64 { return math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSeries(120)
			for i := range s.BoilerFlowTemp {
				s.BoilerFlowTemp[i] = tt.temp(i)
			}
			out := InferBurnerStatus(s, cfg)
			for i, a := range out.BurnerActive {
				if a {
					t.Fatalf("sample %d: unexpectedly active", i)
				}
			}
		})
	}
}

func TestInferBurnerStatusLatencyShift(t *testing.T) {
	// The delay correction must be exactly a backward shift of the
	// zero-delay signal, by the average of the start and stop delays.
	s := newTestSeries(120)
	for i := range s.BoilerFlowTemp {
		if i >= 40 && i < 80 {
			s.BoilerFlowTemp[i] = 50 + 0.5*float64(i-39)
		} else if i >= 80 {
			s.BoilerFlowTemp[i] = 70
		} else {
			s.BoilerFlowTemp[i] = 50
		}
	}

	noDelay := DefaultConfig()
	noDelay.BurnerStartDelay = 0
	noDelay.BurnerStopDelay = 0
	withDelay := DefaultConfig()
	withDelay.BurnerStartDelay = 60 * time.Second
	withDelay.BurnerStopDelay = 120 * time.Second
	shift := 9 // (60+120)/2 seconds at the 10s cadence

	plain := InferBurnerStatus(s, noDelay).BurnerActive
	shifted := InferBurnerStatus(s, withDelay).BurnerActive

	for i := range shifted {
		want := false
		if i+shift < len(plain) {
			want = plain[i+shift]
		}
		if shifted[i] != want {
			t.Errorf("sample %d: shifted = %v, want %v", i, shifted[i], want)
		}
	}
}

func TestInferBurnerStatusEmpty(t *testing.T) {
	out := InferBurnerStatus(series.New(0), DefaultConfig())
	if out.BurnerActive == nil || len(out.BurnerActive) != 0 {
		t.Fatalf("BurnerActive = %v, want empty non-nil slice", out.BurnerActive)
	}
}

func TestInferBurnerStatusDoesNotMutateInput(t *testing.T) {
	s := newTestSeries(30)
	fill(s.BoilerFlowTemp, 60)
	_ = InferBurnerStatus(s, DefaultConfig())
	if s.BurnerActive != nil {
		t.Fatal("input series gained a BurnerActive column")
	}
}
