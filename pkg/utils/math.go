package utils

import "math"

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}

// IsUnitNorm reports whether x has L2 norm within eps of 1.
func IsUnitNorm(x []float32, eps float64) bool {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Abs(math.Sqrt(sum)-1) <= eps
}
