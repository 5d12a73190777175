package index

import (
	"fmt"

	"bovw-extract/internal/features"
	"bovw-extract/internal/vocab"

	"gocv.io/x/gocv"
)

// FLANN queries the vocabulary with OpenCV's FLANN-based matcher.
type FLANN struct {
	dim     int
	train   gocv.Mat
	matcher gocv.FlannBasedMatcher
}

// NewFLANN uploads the vocabulary once and creates the matcher.
func NewFLANN(v *vocab.Vocabulary) (*FLANN, error) {
	train, err := features.MatFromRows(v.Data(), v.Len(), v.Dim())
	if err != nil {
		return nil, fmt.Errorf("vocabulary matrix: %w", err)
	}
	return &FLANN{
		dim:     v.Dim(),
		train:   train,
		matcher: gocv.NewFlannBasedMatcher(),
	}, nil
}

// Nearest implements Index.
func (f *FLANN) Nearest(queries []features.Descriptor) ([]int, error) {
	query, err := features.DescriptorMat(queries, f.dim)
	if err != nil {
		return nil, err
	}
	defer query.Close()

	matches := f.matcher.KnnMatch(query, f.train, 1)
	if len(matches) != len(queries) {
		return nil, fmt.Errorf("flann returned %d matches for %d queries", len(matches), len(queries))
	}

	out := make([]int, len(queries))
	for _, m := range matches {
		if len(m) == 0 {
			return nil, fmt.Errorf("flann returned no neighbour")
		}
		out[m[0].QueryIdx] = m[0].TrainIdx
	}
	return out, nil
}

// Close implements Index.
func (f *FLANN) Close() error {
	if err := f.matcher.Close(); err != nil {
		return err
	}
	return f.train.Close()
}
