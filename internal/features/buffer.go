package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SampleBuffer is an append-only, row-major store of descriptors with a fixed
// row length. It has a single writer during aggregation and is read-only
// afterwards. It satisfies mat.Matrix without copying.
type SampleBuffer struct {
	dim  int
	data []float32
}

var _ mat.Matrix = (*SampleBuffer)(nil)

// NewSampleBuffer creates an empty buffer for descriptors of length dim.
func NewSampleBuffer(dim int) *SampleBuffer {
	return &SampleBuffer{dim: dim}
}

// Append copies d onto the end of the buffer.
func (b *SampleBuffer) Append(d Descriptor) error {
	if len(d) != b.dim {
		return fmt.Errorf("append descriptor of length %d to buffer of dimension %d: %w",
			len(d), b.dim, ErrDimensionMismatch)
	}
	b.data = append(b.data, d...)
	return nil
}

// AppendFeatures appends the descriptor of every feature. Nothing is appended
// unless all descriptors have the buffer's dimension.
func (b *SampleBuffer) AppendFeatures(fs []Feature) error {
	for _, f := range fs {
		if len(f.Descriptor) != b.dim {
			return fmt.Errorf("append descriptor of length %d to buffer of dimension %d: %w",
				len(f.Descriptor), b.dim, ErrDimensionMismatch)
		}
	}
	if need := len(b.data) + len(fs)*b.dim; need > cap(b.data) {
		grown := make([]float32, len(b.data), growCap(cap(b.data), need))
		copy(grown, b.data)
		b.data = grown
	}
	for _, f := range fs {
		b.data = append(b.data, f.Descriptor...)
	}
	return nil
}

func growCap(have, need int) int {
	c := have * 2
	if c < need {
		c = need
	}
	return c
}

// Len returns the number of descriptors stored.
func (b *SampleBuffer) Len() int {
	if b.dim == 0 {
		return 0
	}
	return len(b.data) / b.dim
}

// Dim returns the descriptor length.
func (b *SampleBuffer) Dim() int {
	return b.dim
}

// Row returns descriptor i. The returned slice aliases the buffer.
func (b *SampleBuffer) Row(i int) []float32 {
	return b.data[i*b.dim : (i+1)*b.dim : (i+1)*b.dim]
}

// Data returns the row-major backing storage. Callers must not modify it.
func (b *SampleBuffer) Data() []float32 {
	return b.data
}

// Bytes returns the approximate memory held by the samples.
func (b *SampleBuffer) Bytes() int {
	return len(b.data) * 4
}

// Dims implements mat.Matrix.
func (b *SampleBuffer) Dims() (r, c int) {
	return b.Len(), b.dim
}

// At implements mat.Matrix.
func (b *SampleBuffer) At(i, j int) float64 {
	if i < 0 || i >= b.Len() || j < 0 || j >= b.dim {
		panic(mat.ErrIndexOutOfRange)
	}
	return float64(b.data[i*b.dim+j])
}

// T implements mat.Matrix.
func (b *SampleBuffer) T() mat.Matrix {
	return mat.Transpose{Matrix: b}
}
