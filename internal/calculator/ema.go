package calculator

import "errors"

// Damp moves current toward target by the smoothing factor, an exponential
// moving average step: current + factor*(target-current).
func Damp(current, target, factor float64) float64 {
	return current + (target-current)*factor
}

// Clamp01 limits v to the [0, 1] interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Renormalize scales the weights so they sum to 1. It fails when the sum is
// not positive, which would make the result undefined.
func Renormalize(weights map[string]float64) error {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return errors.New("weight sum must be positive")
	}
	for k, w := range weights {
		weights[k] = w / sum
	}
	return nil
}
