// Package stats provides order statistics over log-price samples.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInsufficientData is matched by InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// InsufficientDataError is returned when a statistic is requested over an empty sample.
type InsufficientDataError struct {
	Op string // statistic that was requested
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: empty sample", e.Op)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Quantile returns the type-7 interpolated quantile of values at p.
// values need not be sorted and is not modified. NaN entries are ignored.
// p is clamped into [0, 1]. Returns *InsufficientDataError if no finite values remain.
func Quantile(values []float64, p float64) (float64, error) {
	sorted := sortedCopy(values)
	if len(sorted) == 0 {
		return 0, &InsufficientDataError{Op: "quantile"}
	}
	return quantileSorted(sorted, p), nil
}

// quantileSorted uses linear interpolation at rank p*(n-1).
// sorted must be non-empty and pre-sorted ASC.
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Median returns the sample median (mean of the two middle values for even n).
func Median(values []float64) (float64, error) {
	sorted := sortedCopy(values)
	if len(sorted) == 0 {
		return 0, &InsufficientDataError{Op: "median"}
	}
	return medianSorted(sorted), nil
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MedianAbsDeviation returns the unscaled median absolute deviation around the median.
func MedianAbsDeviation(values []float64) (float64, error) {
	med, err := Median(values)
	if err != nil {
		return 0, &InsufficientDataError{Op: "median absolute deviation"}
	}

	deviations := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		deviations = append(deviations, math.Abs(v-med))
	}
	sort.Float64s(deviations)
	return medianSorted(deviations), nil
}

// sortedCopy returns an ascending copy of values without NaN entries.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
