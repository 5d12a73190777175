// Package colorutil provides colour helpers for keypoint previews.
package colorutil

import (
	"image/color"
	"math"
)

// HSVToRGB converts HSV in the OpenCV convention (H 0-180, S 0-255, V 0-255)
// to an opaque RGBA colour.
func HSVToRGB(h, s, v float64) color.RGBA {
	h = math.Mod(h*2, 360)
	if h < 0 {
		h += 360
	}
	s /= 255.0
	v /= 255.0

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// Ramp maps t in [0, 1] from blue (0) to red (1). Values outside are clamped.
func Ramp(t float64) color.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return HSVToRGB(120*(1-t), 255, 255)
}
