// Package stats holds the small numeric helpers shared by the forecasting code.
package stats

import (
	"errors"
	"math"
	"sort"
)

// DefaultAlpha replaces an out-of-range smoothing factor.
const DefaultAlpha = 0.4

var ErrEmptyInput = errors.New("stats: empty input")

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// PopulationStdDev divides by N, not N-1. Empty input yields 0.
func PopulationStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, _ := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Median sorts a copy of values; an even length averages the two middle elements.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2, nil
	}
	return sorted[mid], nil
}

// ExponentialSmooth seeds with the first value and returns the final smoothed scalar.
// An alpha outside (0, 1] is replaced by DefaultAlpha.
func ExponentialSmooth(values []float64, alpha float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	if !ValidAlpha(alpha) {
		alpha = DefaultAlpha
	}
	smoothed := values[0]
	for _, v := range values[1:] {
		smoothed = alpha*v + (1-alpha)*smoothed
	}
	return smoothed, nil
}

// ValidAlpha reports whether alpha lies in (0, 1].
func ValidAlpha(alpha float64) bool {
	return alpha > 0 && alpha <= 1
}

// RoundHalfUp rounds to the nearest integer with halves going up.
func RoundHalfUp(x float64) int {
	if math.IsNaN(x) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

// RoundNonNegative rounds half-up and clamps negative results to zero.
func RoundNonNegative(x float64) int {
	r := RoundHalfUp(x)
	if r < 0 {
		return 0
	}
	return r
}
