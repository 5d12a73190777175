package index

import (
	"fmt"
	"math"

	"bovw-extract/internal/features"
	"bovw-extract/internal/vocab"

	"gonum.org/v1/gonum/floats"
)

// Flat is an exact exhaustive search under Euclidean distance.
type Flat struct {
	dim   int
	words [][]float64
	buf   []float64
}

// NewFlat builds a flat index over v.
func NewFlat(v *vocab.Vocabulary) *Flat {
	words := make([][]float64, v.Len())
	for i := range words {
		w := v.Word(i)
		row := make([]float64, len(w))
		for j, x := range w {
			row[j] = float64(x)
		}
		words[i] = row
	}
	return &Flat{dim: v.Dim(), words: words, buf: make([]float64, v.Dim())}
}

// Nearest implements Index. Ties resolve to the lowest word position.
func (f *Flat) Nearest(queries []features.Descriptor) ([]int, error) {
	out := make([]int, len(queries))
	for qi, q := range queries {
		if len(q) != f.dim {
			return nil, fmt.Errorf("query %d has length %d, expected %d: %w",
				qi, len(q), f.dim, features.ErrDimensionMismatch)
		}
		for j, x := range q {
			f.buf[j] = float64(x)
		}
		best, bestDist := -1, math.Inf(1)
		for wi, w := range f.words {
			if d := floats.Distance(f.buf, w, 2); d < bestDist {
				best, bestDist = wi, d
			}
		}
		out[qi] = best
	}
	return out, nil
}

// Close implements Index.
func (f *Flat) Close() error {
	return nil
}
