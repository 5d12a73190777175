// Package vocab builds, stores and loads the visual-word vocabulary.
package vocab

import (
	"context"
	"errors"
	"fmt"

	"bovw-extract/internal/features"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInsufficientSamples is returned when fewer samples than words are supplied.
	ErrInsufficientSamples = errors.New("insufficient samples for vocabulary size")

	// ErrInvalidSize is returned for a non-positive vocabulary size.
	ErrInvalidSize = errors.New("vocabulary size must be positive")

	// ErrShape is returned when a clusterer produces centroids of the wrong shape.
	ErrShape = errors.New("clusterer returned centroids of unexpected shape")
)

// Clusterer computes k centroids from an N x D sample matrix. The result is
// row-major with length k*D.
type Clusterer interface {
	Cluster(ctx context.Context, samples *features.SampleBuffer, k int) ([]float32, error)
}

// Vocabulary is an immutable set of K visual words of dimension D.
type Vocabulary struct {
	k, dim int
	words  []float32
}

// New wraps row-major centroid data. data is not copied.
func New(data []float32, k, dim int) (*Vocabulary, error) {
	if k <= 0 || dim <= 0 || len(data) != k*dim {
		return nil, fmt.Errorf("%w: len=%d k=%d dim=%d", ErrShape, len(data), k, dim)
	}
	return &Vocabulary{k: k, dim: dim, words: data}, nil
}

// Len returns the number of words K.
func (v *Vocabulary) Len() int { return v.k }

// Dim returns the word dimension D.
func (v *Vocabulary) Dim() int { return v.dim }

// Word returns word i. The slice aliases the vocabulary and must not be modified.
func (v *Vocabulary) Word(i int) []float32 {
	return v.words[i*v.dim : (i+1)*v.dim : (i+1)*v.dim]
}

// Data returns the row-major word storage.
func (v *Vocabulary) Data() []float32 {
	return v.words
}

// Dense returns a float64 copy of the vocabulary as a K x D matrix.
func (v *Vocabulary) Dense() *mat.Dense {
	d := make([]float64, len(v.words))
	for i, w := range v.words {
		d[i] = float64(w)
	}
	return mat.NewDense(v.k, v.dim, d)
}

// FromDense converts a K x D matrix to a vocabulary.
func FromDense(m mat.Matrix) (*Vocabulary, error) {
	k, dim := m.Dims()
	data := make([]float32, 0, k*dim)
	for i := 0; i < k; i++ {
		for j := 0; j < dim; j++ {
			data = append(data, float32(m.At(i, j)))
		}
	}
	return New(data, k, dim)
}

// Build validates the sample shape and delegates clustering.
func Build(ctx context.Context, c Clusterer, samples *features.SampleBuffer, k int) (*Vocabulary, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, k)
	}
	n := samples.Len()
	if n < k {
		return nil, fmt.Errorf("%w: %d samples, %d words", ErrInsufficientSamples, n, k)
	}

	centroids, err := c.Cluster(ctx, samples, k)
	if err != nil {
		return nil, fmt.Errorf("clustering %d samples: %w", n, err)
	}
	return New(centroids, k, samples.Dim())
}
