package vectorstore

import (
	"fmt"
	"math"
)

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product of a and b.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector lengths must be equal (%d != %d)", ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
//
// The result is in [-1, 1] and is not clamped. Nil vectors fail with
// ErrNullInput, vectors of unequal length with ErrDimensionMismatch and
// vectors whose norm is exactly zero with ErrZeroNorm.
func CosineSimilarity(a, b []float32) (float64, error) {
	if a == nil || b == nil {
		return 0, fmt.Errorf("%w: vectors must not be nil", ErrNullInput)
	}

	dot, err := Dot(a, b)
	if err != nil {
		return 0, err
	}

	normA, normB := Norm(a), Norm(b)
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: vectors cannot have zero norm", ErrZeroNorm)
	}

	return dot / (normA * normB), nil
}
