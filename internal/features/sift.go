package features

import (
	"context"
	"fmt"

	bovwimage "bovw-extract/internal/image"
	"bovw-extract/pkg/geometry"

	"gocv.io/x/gocv"
)

// SIFTOptions configures the OpenCV SIFT extractor.
type SIFTOptions struct {
	// Threshold drops keypoints whose detector response is below it.
	// Zero keeps every keypoint.
	Threshold float64

	// PreviewDir, when non-empty, receives a PNG per image with the detected
	// keypoints drawn on it.
	PreviewDir string
}

// SIFTExtractor extracts 128-dimensional SIFT descriptors with gocv.
// A fresh detector is created per call so it is safe for concurrent use.
type SIFTExtractor struct {
	opts SIFTOptions
}

// NewSIFTExtractor creates an extractor with the given options.
func NewSIFTExtractor(opts SIFTOptions) *SIFTExtractor {
	return &SIFTExtractor{opts: opts}
}

// Extract implements Extractor.
func (e *SIFTExtractor) Extract(ctx context.Context, path string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layer, err := bovwimage.Load(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	gray, err := GrayMat(layer)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer gray.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	sift := gocv.NewSIFT()
	defer sift.Close()

	kps, desc := sift.DetectAndCompute(gray, mask)
	defer desc.Close()

	img := &Image{Path: path, Size: layer.Size()}
	if len(kps) == 0 || desc.Empty() {
		return img, nil
	}
	if desc.Rows() != len(kps) {
		return nil, &ExtractionError{Path: path,
			Err: fmt.Errorf("descriptor rows %d != keypoints %d", desc.Rows(), len(kps))}
	}

	data, err := desc.DataPtrFloat32()
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("descriptor data: %w", err)}
	}
	cols := desc.Cols()

	img.Features = make([]Feature, 0, len(kps))
	for i, kp := range kps {
		if kp.Response < e.opts.Threshold {
			continue
		}
		d := make(Descriptor, cols)
		copy(d, data[i*cols:(i+1)*cols])
		img.Features = append(img.Features, Feature{
			Keypoint: Keypoint{
				Point:    geometry.NewPoint2D(kp.X, kp.Y),
				Size:     kp.Size,
				Angle:    kp.Angle,
				Response: kp.Response,
			},
			Descriptor: d,
		})
	}

	if e.opts.PreviewDir != "" {
		if err := WritePreview(e.opts.PreviewDir, gray, img); err != nil {
			return nil, &ExtractionError{Path: path, Err: err}
		}
	}

	return img, nil
}

// GrayMat converts a decoded layer to a single-channel 8-bit gocv.Mat.
func GrayMat(layer *bovwimage.Layer) (gocv.Mat, error) {
	g := layer.Gray()
	b := g.Bounds()
	if b.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, g.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create Mat: %w", err)
	}
	return mat, nil
}
