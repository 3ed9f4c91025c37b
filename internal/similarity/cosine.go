// Package similarity provides vector similarity functions over model
// embeddings.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. A zero-norm
// vector yields 0. The result carries float32 precision since the
// embeddings it compares are float32.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("similarity: length mismatch %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("similarity: empty vectors")
	}

	va, vb := widen(a), widen(b)
	denom := floats.Norm(va, 2) * floats.Norm(vb, 2)
	if denom == 0 {
		return 0, nil
	}

	sim := floats.Dot(va, vb) / denom
	sim = math.Max(-1, math.Min(1, sim))
	return float64(float32(sim)), nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
