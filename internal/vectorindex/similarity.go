// Package vectorindex holds the query semantics of chunk similarity search:
// cosine scoring, threshold filtering and top-k ranking. The Postgres index
// evaluates the same rules in SQL; MemoryIndex evaluates them in process.
package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"brd-generator/internal/models"
)

const (
	DefaultThreshold = 0.7
	DefaultLimit     = 8
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyVector       = errors.New("empty vector")
	ErrZeroVector        = errors.New("zero-magnitude vector")
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmptyVector
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, ErrZeroVector
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// float error can push identical vectors slightly past 1
	return math.Max(-1, math.Min(1, sim)), nil
}

// Rank keeps the matches whose similarity is at least threshold, orders them
// by descending similarity and returns at most limit of them. A non-positive
// limit returns nothing. Ties are broken by chunk index then chunk id so the
// order is stable across calls and matches the SQL ordering.
func Rank(matches []models.ChunkMatch, limit int, threshold float64) []models.ChunkMatch {
	if limit <= 0 {
		return nil
	}

	kept := make([]models.ChunkMatch, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= threshold {
			kept = append(kept, m)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Similarity != kept[j].Similarity {
			return kept[i].Similarity > kept[j].Similarity
		}
		if kept[i].ChunkIndex != kept[j].ChunkIndex {
			return kept[i].ChunkIndex < kept[j].ChunkIndex
		}
		return kept[i].ChunkID < kept[j].ChunkID
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Normalize fills zero values of q with the defaults. Both index
// implementations call it, so a zero threshold means 0.7 everywhere; pass a
// negative threshold to keep every match.
func Normalize(q models.SearchQuery) models.SearchQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Threshold == 0 {
		q.Threshold = DefaultThreshold
	}
	return q
}
