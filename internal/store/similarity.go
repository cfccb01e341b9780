package store

import "math"

// Cosine returns the cosine similarity between two vectors: the dot product
// divided by the product of magnitudes, in [-1, 1]. Vectors of different
// lengths or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// DistanceToSimilarity maps a non-negative distance reported by an indexed
// backend onto (0, 1] via 1/(1+d). The mapping is strictly decreasing, so
// ascending-distance order and descending-similarity order agree.
func DistanceToSimilarity(d float64) float64 {
	return 1 / (1 + d)
}
