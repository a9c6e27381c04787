package prediction

import (
	"math"
	"sort"
	"time"
)

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// blend mixes a baseline value with a learned one. ratio is the baseline weight.
func blend(baseline, learned, ratio float64) float64 {
	return ratio*baseline + (1-ratio)*learned
}

// minutesBetween returns to - from in fractional minutes
func minutesBetween(from, to time.Time) float64 {
	return to.Sub(from).Minutes()
}

func minutesDuration(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
