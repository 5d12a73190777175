package vocab

import (
	"context"
	"fmt"

	"bovw-extract/internal/features"

	"gocv.io/x/gocv"
)

// KMeansOptions configures OpenCV k-means.
type KMeansOptions struct {
	MaxIter  int     `yaml:"max_iter" json:"max_iter"`
	Epsilon  float64 `yaml:"epsilon" json:"epsilon"`
	Attempts int     `yaml:"attempts" json:"attempts"`
	PlusPlus bool    `yaml:"plus_plus" json:"plus_plus"`
}

// DefaultKMeansOptions returns 10 iterations, epsilon 1.0, one attempt and
// random initial centers.
func DefaultKMeansOptions() KMeansOptions {
	return KMeansOptions{
		MaxIter:  10,
		Epsilon:  1.0,
		Attempts: 1,
	}
}

// KMeans clusters with gocv.KMeans.
type KMeans struct {
	opts KMeansOptions
}

// NewKMeans creates an OpenCV-backed clusterer.
func NewKMeans(opts KMeansOptions) *KMeans {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	return &KMeans{opts: opts}
}

// Cluster implements Clusterer.
func (c *KMeans) Cluster(ctx context.Context, samples *features.SampleBuffer, k int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, dim := samples.Dims()
	data, err := features.MatFromRows(samples.Data(), n, dim)
	if err != nil {
		return nil, fmt.Errorf("sample matrix: %w", err)
	}
	defer data.Close()

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	flags := gocv.KMeansRandomCenters
	if c.opts.PlusPlus {
		flags = gocv.KMeansPPCenters
	}
	criteria := gocv.NewTermCriteria(gocv.EPS+gocv.MaxIter, c.opts.MaxIter, c.opts.Epsilon)
	gocv.KMeans(data, k, &labels, criteria, c.opts.Attempts, flags, &centers)

	if centers.Rows() != k || centers.Cols() != dim {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShape, centers.Rows(), centers.Cols(), k, dim)
	}

	out := make([]float32, 0, k*dim)
	for i := 0; i < k; i++ {
		for j := 0; j < dim; j++ {
			out = append(out, centers.GetFloatAt(i, j))
		}
	}
	return out, nil
}
