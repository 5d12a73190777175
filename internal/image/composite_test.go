package image

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSheet_Place(t *testing.T) {
	s := NewSheet(5, 2, 10)
	assert.Equal(t, 10, s.Capacity())
	assert.Equal(t, image.Rect(0, 0, 50, 20), s.Render().Bounds())

	red := color.RGBA{255, 0, 0, 255}
	assert.True(t, s.Place(6, solid(40, 20, red)))

	out := s.Render()
	// Tile 6 is column 1 of row 1; a 2:1 image fills the top half of it.
	assert.Equal(t, red, out.RGBAAt(12, 12))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(12, 18))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(2, 2))
}

func TestSheet_PlaceOutOfRange(t *testing.T) {
	s := NewSheet(2, 1, 8)
	img := solid(4, 4, color.RGBA{0, 0, 255, 255})
	assert.False(t, s.Place(-1, img))
	assert.False(t, s.Place(2, img))
	assert.False(t, s.Place(0, nil))
	assert.False(t, s.Place(0, image.NewRGBA(image.Rectangle{})))
}
