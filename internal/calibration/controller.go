// Package calibration tunes the target quantile so the realized hit-rate
// over a backtest horizon tracks the desired percentage.
package calibration

import "math"

// Adjust performs one proportional controller step and clamps the result:
//
//	clamp(nominal + speed*(desired - observed), minBound, maxBound)
//
// When observed < desired the target moves up (admits more trades under the
// estimate); when observed > desired it moves down.
func Adjust(nominal, desired, observed, speed, minBound, maxBound float64) float64 {
	next := nominal + speed*(desired-observed)
	return math.Min(maxBound, math.Max(minBound, next))
}

// HitRate returns the fraction of values[i] <= estimates[i].
// Only the common prefix of the two slices is considered; an empty prefix yields 0.
func HitRate(values, estimates []float64) float64 {
	n := len(values)
	if len(estimates) < n {
		n = len(estimates)
	}
	if n == 0 {
		return 0
	}

	hits := 0
	for i := 0; i < n; i++ {
		if values[i] <= estimates[i] {
			hits++
		}
	}
	return float64(hits) / float64(n)
}
