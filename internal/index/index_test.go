package index

import (
	"sync"
	"testing"

	"bovw-extract/internal/features"
	"bovw-extract/internal/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New([]float32{
		0, 0,
		10, 0,
		0, 10,
	}, 3, 2)
	require.NoError(t, err)
	return v
}

func TestFlat_Nearest(t *testing.T) {
	idx := NewFlat(testVocab(t))
	got, err := idx.Nearest([]features.Descriptor{{1, 1}, {9, 1}, {1, 8}, {5, 0}})
	require.NoError(t, err)
	// (5,0) is equidistant from words 0 and 1; the lower position wins.
	assert.Equal(t, []int{0, 1, 2, 0}, got)

	_, err = idx.Nearest([]features.Descriptor{{1, 2, 3}})
	assert.ErrorIs(t, err, features.ErrDimensionMismatch)
	assert.NoError(t, idx.Close())
}

func TestNew_Kinds(t *testing.T) {
	idx, err := New(KindFlat, testVocab(t))
	require.NoError(t, err)
	assert.IsType(t, &Flat{}, idx)

	_, err = New("annoy", testVocab(t))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestFLANN_Nearest(t *testing.T) {
	idx, err := NewFLANN(testVocab(t))
	require.NoError(t, err)
	defer idx.Close()

	got, err := idx.Nearest([]features.Descriptor{{1, 1}, {9, 1}, {1, 8}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

// countingIndex fails the test if two queries overlap.
type countingIndex struct {
	t      *testing.T
	mu     sync.Mutex
	active int
	inner  Index
}

func (c *countingIndex) Nearest(q []features.Descriptor) ([]int, error) {
	c.mu.Lock()
	c.active++
	if c.active > 1 {
		c.t.Errorf("concurrent index access")
	}
	c.mu.Unlock()

	out, err := c.inner.Nearest(q)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return out, err
}

func (c *countingIndex) Close() error { return nil }

func TestGuarded_Serialises(t *testing.T) {
	g := NewGuarded(&countingIndex{t: t, inner: NewFlat(testVocab(t))})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := g.NearestBatch([]features.Descriptor{{9, 9}, {0, 9}})
				assert.NoError(t, err)
				assert.Equal(t, []int{1, 2}, got)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(16*50*2), g.Queries())
	assert.NoError(t, g.Close())
}

func TestGuarded_EmptyBatch(t *testing.T) {
	g := NewGuarded(NewFlat(testVocab(t)))
	got, err := g.NearestBatch(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(0), g.Queries())
}
