package series

import (
	"math"
	"testing"
)

func TestRollingMeanCentered(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		window int
		want   []float64 // NaN for undefined
	}{
		{
			name:   "window 3 over constant",
			values: []float64{2, 2, 2, 2, 2},
			window: 3,
			want:   []float64{math.NaN(), 2, 2, 2, math.NaN()},
		},
		{
			name:   "window 3 over ramp",
			values: []float64{0, 1, 2, 3, 4},
			window: 3,
			want:   []float64{math.NaN(), 1, 2, 3, math.NaN()},
		},
		{
			name:   "missing value poisons its windows",
			values: []float64{1, 1, math.NaN(), 1, 1},
			window: 3,
			want:   []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
		{
			name:   "window larger than series",
			values: []float64{1, 2},
			window: 5,
			want:   []float64{math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RollingMeanCentered(tt.values, tt.window)
			assertFloatsEqual(t, got, tt.want)
		})
	}
}

func TestRollingMeanTrailing(t *testing.T) {
	got := RollingMeanTrailing([]float64{0, 1, 2, 3, 4}, 2)
	want := []float64{math.NaN(), 0.5, 1.5, 2.5, 3.5}
	assertFloatsEqual(t, got, want)
}

func TestRollingStdTrailing(t *testing.T) {
	// Constant values have zero deviation once the window fills.
	got := RollingStdTrailing([]float64{5, 5, 5, 5}, 3)
	want := []float64{math.NaN(), math.NaN(), 0, 0}
	assertFloatsEqual(t, got, want)

	// Known sample stddev of {1,3}: sqrt(2).
	got = RollingStdTrailing([]float64{1, 3}, 2)
	if math.Abs(got[1]-math.Sqrt2) > 1e-12 {
		t.Errorf("stddev = %v, want sqrt(2)", got[1])
	}
}

func TestDiff(t *testing.T) {
	got := Diff([]float64{10, 12, 11})
	if !math.IsNaN(got[0]) {
		t.Errorf("diff[0] = %v, want NaN", got[0])
	}
	if got[1] != 2 || got[2] != -1 {
		t.Errorf("diff = %v, want [NaN 2 -1]", got)
	}
}

func TestShiftBoolBackward(t *testing.T) {
	tests := []struct {
		name    string
		in      []bool
		periods int
		want    []bool
	}{
		{
			name:    "shift by two",
			in:      []bool{false, false, true, true, false},
			periods: 2,
			want:    []bool{true, true, false, false, false},
		},
		{
			name:    "shift by zero is identity",
			in:      []bool{true, false, true},
			periods: 0,
			want:    []bool{true, false, true},
		},
		{
			name:    "shift beyond length clears all",
			in:      []bool{true, true},
			periods: 5,
			want:    []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShiftBoolBackward(tt.in, tt.periods)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("out[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// assertFloatsEqual compares slices treating NaN as equal to NaN.
func assertFloatsEqual(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("out[%d] = %v, want NaN", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
