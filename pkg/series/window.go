package series

import "math"

// Rolling window helpers shared by the pipeline stages.
//
// All of them use full-window semantics: a position whose window is
// incomplete (series edge) or contains a missing value yields NaN, and the
// caller substitutes whatever default its stage documents (inactive, zero,
// not-steady). This mirrors how the boundary region of a centered or
// trailing window is handled throughout the pipeline.

// RollingMeanCentered computes a centered moving average of the given window
// length. For even windows the extra sample is taken from the trailing side.
func RollingMeanCentered(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window < 1 || window > n {
		return out
	}

	half := window / 2
	for i := range values {
		start := i - half
		end := start + window // exclusive
		if start < 0 || end > n {
			continue
		}
		sum := 0.0
		ok := true
		for j := start; j < end; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingMeanTrailing computes a trailing moving average: position i covers
// samples [i-window+1, i].
func RollingMeanTrailing(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window < 1 || window > n {
		return out
	}

	for i := window - 1; i < n; i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingStdTrailing computes a trailing sample standard deviation over the
// given window length.
func RollingStdTrailing(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window < 2 || window > n {
		return out
	}

	for i := window - 1; i < n; i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(window-1))
	}
	return out
}

// Diff returns the first difference of values: out[i] = values[i]-values[i-1].
// The first element, and any element adjacent to a missing value, is NaN.
func Diff(values []float64) []float64 {
	out := nanSlice(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// ShiftBoolBackward shifts a boolean signal backward in time by the given
// number of samples: out[i] = in[i+periods]. The trailing periods samples,
// exposed by the shift, default to false.
func ShiftBoolBackward(in []bool, periods int) []bool {
	n := len(in)
	out := make([]bool, n)
	if periods < 0 {
		periods = 0
	}
	for i := 0; i+periods < n; i++ {
		out[i] = in[i+periods]
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
