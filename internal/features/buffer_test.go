package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSampleBuffer_Append(t *testing.T) {
	b := NewSampleBuffer(3)
	assert.Equal(t, 0, b.Len())

	require.NoError(t, b.Append(Descriptor{1, 2, 3}))
	require.NoError(t, b.Append(Descriptor{4, 5, 6}))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []float32{4, 5, 6}, b.Row(1))
	assert.Equal(t, 24, b.Bytes())

	err := b.Append(Descriptor{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 2, b.Len())
}

func TestSampleBuffer_AppendFeaturesAllOrNothing(t *testing.T) {
	b := NewSampleBuffer(2)
	require.NoError(t, b.AppendFeatures([]Feature{feat(1, 1, 1), feat(2, 2, 2)}))
	assert.Equal(t, 2, b.Len())

	bad := []Feature{feat(3, 3, 3), {Descriptor: Descriptor{1, 2, 3}}}
	assert.ErrorIs(t, b.AppendFeatures(bad), ErrDimensionMismatch)
	assert.Equal(t, 2, b.Len())
}

func TestSampleBuffer_GrowsMonotonically(t *testing.T) {
	b := NewSampleBuffer(2)
	prev := 0
	for i := 0; i < 100; i++ {
		require.NoError(t, b.AppendFeatures([]Feature{feat(0, 0, float32(i))}))
		assert.Greater(t, b.Len(), prev)
		prev = b.Len()
	}
	assert.Equal(t, float32(57), b.Row(57)[0])
}

func TestSampleBuffer_MatrixView(t *testing.T) {
	b := NewSampleBuffer(2)
	require.NoError(t, b.Append(Descriptor{1, 2}))
	require.NoError(t, b.Append(Descriptor{3, 4}))
	require.NoError(t, b.Append(Descriptor{5, 6}))

	r, c := b.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 4.0, b.At(1, 1))

	want := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	assert.True(t, mat.Equal(want, b))
	assert.True(t, mat.Equal(want.T(), b.T()))

	assert.Panics(t, func() { b.At(3, 0) })
}
