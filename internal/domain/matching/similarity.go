package matching

import (
	"errors"
	"math"
)

// MatchThreshold is the minimum similarity for a (user, job) pair to qualify.
const MatchThreshold = 0.70

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns the normalized dot product of a and b.
// Zero-magnitude input yields 0, not an error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	s := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(s) {
		return 0, nil
	}
	return clampFloat(s, -1, 1), nil
}

func ScoreFromSimilarity(s float64) int {
	if math.IsNaN(s) {
		return 0
	}
	s = clampFloat(s, 0, 1)
	return clampInt(int(math.Round(s*100)), 0, 100)
}

func MeetsThreshold(s float64) bool {
	return s >= MatchThreshold
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
