package vocab

import (
	"context"
	"math"

	"bovw-extract/internal/corpus"
	"bovw-extract/internal/features"
)

// Lloyd is a pure Go k-means clusterer. It needs no OpenCV and is
// deterministic for a non-zero seed. Seed 0 picks a random seed, as the
// corpus sampler does.
type Lloyd struct {
	MaxIter int
	Seed    int64
}

// Cluster implements Clusterer.
func (l *Lloyd) Cluster(ctx context.Context, samples *features.SampleBuffer, k int) ([]float32, error) {
	n, dim := samples.Dims()
	vectors := samples.Data()
	maxIter := l.MaxIter
	if maxIter <= 0 {
		maxIter = 10
	}
	rng := corpus.NewRand(l.Seed)

	// Initialize centroids from distinct random samples.
	centroids := make([]float32, k*dim)
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], samples.Row(perm[i]))
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float64, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i := 0; i < n; i++ {
			best := nearest(vectors[i*dim:(i+1)*dim], centroids, dim)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for i := range sums {
			sums[i] = 0
		}
		for i := range counts {
			counts[i] = 0
		}
		for i := 0; i < n; i++ {
			c := assignments[i]
			for d := 0; d < dim; d++ {
				sums[c*dim+d] += float64(vectors[i*dim+d])
			}
			counts[c]++
		}
		for j := 0; j < k; j++ {
			if counts[j] == 0 {
				// Reseed an empty cluster with a random sample.
				copy(centroids[j*dim:(j+1)*dim], samples.Row(rng.Intn(n)))
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[j*dim+d] = float32(sums[j*dim+d] / float64(counts[j]))
			}
		}
	}

	return centroids, nil
}

func nearest(vec, centroids []float32, dim int) int {
	best := -1
	bestDist := math.Inf(1)
	for j := 0; j*dim < len(centroids); j++ {
		c := centroids[j*dim : (j+1)*dim]
		var d float64
		for i := range vec {
			diff := float64(vec[i] - c[i])
			d += diff * diff
		}
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}
