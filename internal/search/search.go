// Package search ranks the images of a histogram file by visual-word
// similarity to a query image.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"bovw-extract/internal/histogram"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrNotFound is returned when the query has no histogram row.
	ErrNotFound = errors.New("no histogram")

	// ErrUndefined is returned when the query row has no descriptors.
	ErrUndefined = errors.New("histogram is undefined")
)

// Match is one ranked result.
type Match struct {
	Score float64
	Path  string
}

// Index holds every row of a histogram file.
type Index struct {
	rows   []histogram.Row
	byPath map[string]int
}

// New indexes rows. Later duplicates of a path replace earlier ones.
func New(rows []histogram.Row) *Index {
	idx := &Index{byPath: make(map[string]int, len(rows))}
	for _, r := range rows {
		if i, ok := idx.byPath[r.Path]; ok {
			idx.rows[i] = r
			continue
		}
		idx.byPath[r.Path] = len(idx.rows)
		idx.rows = append(idx.rows, r)
	}
	return idx
}

// Load reads and indexes a histogram file.
func Load(path string) (*Index, error) {
	rows, err := histogram.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(rows), nil
}

// Len returns the number of indexed images.
func (idx *Index) Len() int {
	return len(idx.rows)
}

// Intersection is the normalised histogram intersection sum(min(q, t)) / sum(q).
// It is not symmetric. Undefined or empty histograms score 0.
func Intersection(q, t []float64) float64 {
	if len(q) != len(t) || len(q) == 0 {
		return 0
	}
	total := floats.Sum(q)
	if total == 0 || math.IsNaN(total) {
		return 0
	}
	var s float64
	for i := range q {
		m := min(q[i], t[i])
		if math.IsNaN(m) {
			return 0
		}
		s += m
	}
	return s / total
}

// Query ranks every indexed image against the image at path, best first.
// The query itself is included. Equal scores are ordered by path, descending.
// n <= 0 returns all.
func (idx *Index) Query(path string, n int) ([]Match, error) {
	i, ok := idx.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	q := idx.rows[i]
	if !q.Defined() {
		return nil, fmt.Errorf("%s: %w", path, ErrUndefined)
	}

	out := make([]Match, len(idx.rows))
	for j, r := range idx.rows {
		out[j] = Match{Score: Intersection(q.Frequencies, r.Frequencies), Path: r.Path}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Path > out[b].Path
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out, nil
}
