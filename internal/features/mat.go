package features

import (
	"encoding/binary"
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// MatFromRows copies row-major float32 data into a new CV_32F Mat.
func MatFromRows(data []float32, rows, cols int) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("%w: %d values for %dx%d", ErrDimensionMismatch, len(data), rows, cols)
	}
	b := make([]byte, 4*len(data))
	for i, f := range data {
		binary.NativeEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV32F, b)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create Mat: %w", err)
	}
	return mat, nil
}

// DescriptorMat stacks descriptors of length dim into an N x dim CV_32F Mat.
func DescriptorMat(descs []Descriptor, dim int) (gocv.Mat, error) {
	data := make([]float32, 0, len(descs)*dim)
	for i, d := range descs {
		if len(d) != dim {
			return gocv.NewMat(), fmt.Errorf("descriptor %d has length %d, expected %d: %w",
				i, len(d), dim, ErrDimensionMismatch)
		}
		data = append(data, d...)
	}
	return MatFromRows(data, len(descs), dim)
}
