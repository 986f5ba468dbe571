package calculator

// RollingMean computes the mean of the most recent window values. It
// returns 0 when values is empty. A window of 0 or less means all values.
func RollingMean(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := 0
	if window > 0 && len(values) > window {
		start = len(values) - window
	}
	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start)
}

// AppendBounded appends v to values, dropping the oldest entries so at most
// limit values are kept.
func AppendBounded(values []float64, v float64, limit int) []float64 {
	values = append(values, v)
	if limit > 0 && len(values) > limit {
		values = values[len(values)-limit:]
	}
	return values
}
