package features

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"bovw-extract/pkg/colorutil"

	"gocv.io/x/gocv"
)

// WritePreview draws every keypoint of img as a circle on a colour copy of
// gray and writes it to dir as <basename>.png. Circles run from blue for the
// weakest response to red for the strongest.
func WritePreview(dir string, gray gocv.Mat, img *Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)

	lo, hi := responseRange(img.Features)
	for _, f := range img.Features {
		t := 1.0
		if hi > lo {
			t = (f.Keypoint.Response - lo) / (hi - lo)
		}
		center := f.Keypoint.Point.Round()
		radius := int(math.Round(f.Keypoint.Size * (1.2 / 9.0) * 2))
		if radius < 1 {
			radius = 1
		}
		gocv.Circle(&bgr, image.Pt(center.X, center.Y), radius, colorutil.Ramp(t), 1)
	}

	name := strings.TrimSuffix(filepath.Base(img.Path), filepath.Ext(img.Path)) + ".png"
	out := filepath.Join(dir, name)
	if !gocv.IMWrite(out, bgr) {
		return fmt.Errorf("failed to write preview %s", out)
	}
	return nil
}

func responseRange(fs []Feature) (lo, hi float64) {
	for i, f := range fs {
		r := f.Keypoint.Response
		if i == 0 || r < lo {
			lo = r
		}
		if i == 0 || r > hi {
			hi = r
		}
	}
	return lo, hi
}
