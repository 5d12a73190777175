package features

import (
	"errors"
	"fmt"
	"math"

	"bovw-extract/pkg/geometry"
)

var (
	// ErrInvalidGrid is returned for non-positive grid parameters.
	ErrInvalidGrid = errors.New("invalid boundary grid")

	// ErrGridTooFine is returned when a grid cell is smaller than the margin.
	ErrGridTooFine = errors.New("boundary gap exceeds grid cell size")
)

// Grid describes the internal sampling seams around which keypoints are dropped.
type Grid struct {
	// HorizontalBlocks is the number of divisions along X.
	HorizontalBlocks int `yaml:"horizontal_blocks" json:"horizontal_blocks"`

	// VerticalBlocks is the number of divisions along Y.
	VerticalBlocks int `yaml:"vertical_blocks" json:"vertical_blocks"`

	// Gap is the margin in pixels on either side of an internal line.
	Gap int `yaml:"gap" json:"gap"`
}

// DefaultGrid returns the 8x8 grid with a 10 pixel margin.
func DefaultGrid() Grid {
	return Grid{
		HorizontalBlocks: 8,
		VerticalBlocks:   8,
		Gap:              10,
	}
}

// Validate checks the grid parameters independent of any image.
func (g Grid) Validate() error {
	if g.HorizontalBlocks <= 0 || g.VerticalBlocks <= 0 || g.Gap < 0 {
		return fmt.Errorf("%w: blocks=%dx%d gap=%d", ErrInvalidGrid,
			g.HorizontalBlocks, g.VerticalBlocks, g.Gap)
	}
	return nil
}

// Mask is the boundary mask for one image geometry. It is separable: a point is
// excluded when its X is near an internal vertical line or its Y is near an
// internal horizontal line.
type Mask struct {
	size geometry.Size
	gap  float64
	cols []float64 // X offsets of internal vertical lines
	rows []float64 // Y offsets of internal horizontal lines
}

// NewMask builds the mask for an image of the given size.
func NewMask(size geometry.Size, g Grid) (*Mask, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if size.Empty() {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidGrid, size.Width, size.Height)
	}
	if size.Height/g.VerticalBlocks < g.Gap || size.Width/g.HorizontalBlocks < g.Gap {
		return nil, fmt.Errorf("%w: image %dx%d, blocks %dx%d, gap %d", ErrGridTooFine,
			size.Width, size.Height, g.HorizontalBlocks, g.VerticalBlocks, g.Gap)
	}

	return &Mask{
		size: size,
		gap:  float64(g.Gap),
		cols: lineOffsets(size.Width, g.HorizontalBlocks),
		rows: lineOffsets(size.Height, g.VerticalBlocks),
	}, nil
}

func lineOffsets(extent, blocks int) []float64 {
	step := extent / blocks
	offsets := make([]float64, 0, blocks-1)
	for i := 1; i < blocks; i++ {
		offsets = append(offsets, float64(step*i))
	}
	return offsets
}

// Excluded reports whether the pixel holding (x, y) lies in the band
// [line-Gap, line+Gap) of an internal grid line. Pixels are addressed by
// truncating the coordinate. The outer image edges are not grid lines and a
// point on one is never excluded.
func (m *Mask) Excluded(x, y float64) bool {
	return nearAny(x, float64(m.size.Width), m.cols, m.gap) ||
		nearAny(y, float64(m.size.Height), m.rows, m.gap)
}

func nearAny(v, extent float64, lines []float64, gap float64) bool {
	if v <= 0 || v >= extent {
		return false
	}
	p := math.Floor(v)
	for _, l := range lines {
		if p >= l-gap && p < l+gap {
			return true
		}
	}
	return false
}

// Filter returns the features whose keypoints are not excluded, in their
// original order. The input slice is left untouched.
func (m *Mask) Filter(in []Feature) []Feature {
	out := make([]Feature, 0, len(in))
	for _, f := range in {
		if m.Excluded(f.Keypoint.Point.X, f.Keypoint.Point.Y) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FilterImage builds the mask for img's own geometry and filters its features.
// It returns the survivors and how many were removed.
func FilterImage(img *Image, g Grid) ([]Feature, int, error) {
	mask, err := NewMask(img.Size, g)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", img.Path, err)
	}
	kept := mask.Filter(img.Features)
	return kept, len(img.Features) - len(kept), nil
}
