package stats

// OutlierMADMultiple is the fence width in median absolute deviations.
const OutlierMADMultiple = 3.0

// minOutlierSample is the smallest sample for which fences are computed.
const minOutlierSample = 3

// RemoveOutliers drops values further than OutlierMADMultiple MADs from the median.
// Fences are inclusive and input order is preserved.
// Samples with fewer than three points are returned unmodified, and the result
// is never empty for a non-empty input.
func RemoveOutliers(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) < minOutlierSample {
		return out
	}

	med, err := Median(values)
	if err != nil {
		return out
	}
	mad, err := MedianAbsDeviation(values)
	if err != nil {
		return out
	}

	lb := med - OutlierMADMultiple*mad
	ub := med + OutlierMADMultiple*mad

	kept := out[:0]
	for _, v := range values {
		if v >= lb && v <= ub {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		// At least half the sample sits within one MAD, so this only happens
		// when every value is NaN.
		restored := make([]float64, len(values))
		copy(restored, values)
		return restored
	}
	return kept
}
