package vocab

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMeans_Cluster(t *testing.T) {
	samples := buffer(t, 2,
		[]float32{0, 0}, []float32{0, 1}, []float32{1, 0}, []float32{1, 1},
		[]float32{20, 20}, []float32{20, 21}, []float32{21, 20}, []float32{21, 21},
	)

	opts := DefaultKMeansOptions()
	opts.Attempts = 3
	v, err := Build(context.Background(), NewKMeans(opts), samples, 2)
	require.NoError(t, err)
	require.Equal(t, 2, v.Len())

	a := nearest([]float32{0.5, 0.5}, v.Data(), 2)
	b := nearest([]float32{20.5, 20.5}, v.Data(), 2)
	assert.NotEqual(t, a, b)
	assert.InDelta(t, 0.5, v.Word(a)[0], 1e-3)
	assert.InDelta(t, 20.5, v.Word(b)[1], 1e-3)
}
