package evaluator

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	maxScore = 5.0
	maxRGB   = 255.0
)

// clamp bounds v to [lo, hi]. NaN collapses to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// unit sanitizes a provider score into [0,1].
func unit(v float64) float64 {
	return clamp(v, 0, 1)
}

// weightedMean returns Σ(v·w)/Σw, and false when the weights cannot produce a finite mean.
func weightedMean(values, weights []float64) (float64, bool) {
	if len(values) == 0 || len(values) != len(weights) {
		return 0, false
	}
	total := floats.Sum(weights)
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, false
	}
	m := stat.Mean(values, weights)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}
	return m, true
}
