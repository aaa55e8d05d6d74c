package embedding

import (
	"context"
	"math"
	"strings"
)

// Backend turns text into fixed-length vectors. Implementations must be
// deterministic for a given configuration and must return a zero vector of
// their declared dimensionality for empty input rather than erroring.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Similarity is cosine similarity remapped from [-1,1] to [0,1]. A
// zero-norm operand yields 0.0 by definition, never an error.
func Similarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	sim := (cos + 1.0) / 2.0
	if sim < 0 {
		return 0.0
	}
	if sim > 1 {
		return 1.0
	}
	return sim
}

// Truncate bounds embedding input to a fixed character budget, cutting at
// a word boundary when one is close enough.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndex(cut, " "); idx > maxChars*3/4 {
		cut = cut[:idx]
	}
	return cut
}

// ZeroVector returns the all-zero vector of the given dimensionality.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}
