package image

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Sheet lays out images as fixed-size tiles on a grid, row-major.
type Sheet struct {
	Columns   int
	Rows      int
	Tile      int // Tile edge length in pixels
	BackColor color.Color

	canvas *image.RGBA
}

// NewSheet creates a blank contact sheet.
func NewSheet(columns, rows, tile int) *Sheet {
	s := &Sheet{
		Columns:   columns,
		Rows:      rows,
		Tile:      tile,
		BackColor: color.RGBA{255, 255, 255, 255},
	}
	s.canvas = image.NewRGBA(image.Rect(0, 0, columns*tile, rows*tile))
	draw.Draw(s.canvas, s.canvas.Bounds(), &image.Uniform{s.BackColor}, image.Point{}, draw.Src)
	return s
}

// Capacity returns the number of tiles on the sheet.
func (s *Sheet) Capacity() int {
	return s.Columns * s.Rows
}

// Place scales img to fit tile n, preserving aspect ratio. Out-of-range tiles
// are ignored.
func (s *Sheet) Place(n int, img image.Image) bool {
	if n < 0 || n >= s.Capacity() || img == nil {
		return false
	}
	src := img.Bounds()
	if src.Empty() {
		return false
	}

	w, h := s.Tile, s.Tile
	if src.Dx() > src.Dy() {
		h = s.Tile * src.Dy() / src.Dx()
	} else {
		w = s.Tile * src.Dx() / src.Dy()
	}

	x0 := (n % s.Columns) * s.Tile
	y0 := (n / s.Columns) * s.Tile
	dst := image.Rect(x0, y0, x0+w, y0+h)
	draw.ApproxBiLinear.Scale(s.canvas, dst, img, src, draw.Over, nil)
	return true
}

// Render returns the composed sheet.
func (s *Sheet) Render() *image.RGBA {
	return s.canvas
}
