// Package features provides local keypoint/descriptor extraction, grid-boundary
// filtering and the growing descriptor sample buffer used for vocabulary training.
package features

import (
	"context"
	"errors"
	"fmt"

	"bovw-extract/pkg/geometry"
)

// DefaultDimension is the descriptor length produced by SIFT.
const DefaultDimension = 128

// ErrDimensionMismatch is returned when an image yields descriptors whose
// length differs from the run's fixed dimensionality.
var ErrDimensionMismatch = errors.New("descriptor dimension mismatch")

// Keypoint is a detected point of interest.
type Keypoint struct {
	Point    geometry.Point2D `json:"point"`
	Size     float64          `json:"size"`
	Angle    float64          `json:"angle,omitempty"`
	Response float64          `json:"response,omitempty"`
}

// Descriptor is a fixed-length local feature vector.
type Descriptor []float32

// Feature pairs a keypoint with the descriptor computed around it.
type Feature struct {
	Keypoint   Keypoint
	Descriptor Descriptor
}

// Image holds everything extracted from one file.
type Image struct {
	Path     string
	Size     geometry.Size // true pixel dimensions of the decoded image
	Features []Feature
}

// CheckDimension verifies that every descriptor has length dim.
func (img *Image) CheckDimension(dim int) error {
	for i, f := range img.Features {
		if len(f.Descriptor) != dim {
			return fmt.Errorf("%s: descriptor %d has length %d, expected %d: %w",
				img.Path, i, len(f.Descriptor), dim, ErrDimensionMismatch)
		}
	}
	return nil
}

// Extractor detects keypoints and computes descriptors for an image file.
// Implementations must be safe for concurrent use by multiple goroutines.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Image, error)
}

// ExtractionError reports an unreadable or corrupt input. It is recoverable:
// callers skip the image and carry on.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
