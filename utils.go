package rnd

import "math"

func MaxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func MinFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RoundToStep rounds num to the nearest multiple of step. Ties round up.
func RoundToStep(num float64, step float64) float64 {
	if step <= 0 {
		return num
	}
	return math.Floor(num/step+0.5) * step
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
