package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"bovw-extract/internal/features"
	"bovw-extract/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 4

// fakeExtractor serves canned results keyed by file base name.
type fakeExtractor struct {
	mu     sync.Mutex
	images map[string]*features.Image
	fail   map[string]error
	calls  []string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*features.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(path)
	f.calls = append(f.calls, name)
	if err, ok := f.fail[name]; ok {
		return nil, err
	}
	img, ok := f.images[name]
	if !ok {
		return nil, &features.ExtractionError{Path: path, Err: errors.New("no such image")}
	}
	out := *img
	out.Path = path
	return &out, nil
}

// syntheticImage returns an 800x800 image with kept features at cell centres
// and removed features on internal grid lines.
func syntheticImage(kept, removed, d int) *features.Image {
	img := &features.Image{Size: geometry.NewSize(800, 800)}
	for i := 0; i < kept; i++ {
		img.Features = append(img.Features, features.Feature{
			Keypoint:   features.Keypoint{Point: geometry.NewPoint2D(50+float64(i%8)*100, 50)},
			Descriptor: make(features.Descriptor, d),
		})
	}
	for i := 0; i < removed; i++ {
		img.Features = append(img.Features, features.Feature{
			Keypoint:   features.Keypoint{Point: geometry.NewPoint2D(400, 50)},
			Descriptor: make(features.Descriptor, d),
		})
	}
	return img
}

func corpusDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}
	return dir
}

func newAggregator(ex features.Extractor, maxFiles int, seed int64) *Aggregator {
	return &Aggregator{
		Extractor: ex,
		Grid:      features.DefaultGrid(),
		Dimension: dim,
		MaxFiles:  maxFiles,
		Rand:      rand.New(rand.NewSource(seed)),
	}
}

func TestAggregate_FiltersAndAppends(t *testing.T) {
	dir := corpusDir(t, "a.jpg", "b.jpg", "c.txt")
	ex := &fakeExtractor{images: map[string]*features.Image{
		"a.jpg": syntheticImage(5, 2, dim),
		"b.jpg": syntheticImage(3, 4, dim),
	}}

	buf, report, err := newAggregator(ex, 10, 1).Aggregate(context.Background(), dir, "*.jpg")
	require.NoError(t, err)

	assert.Equal(t, 8, buf.Len())
	assert.Equal(t, dim, buf.Dim())
	assert.Equal(t, 2, report.FilesMatched)
	assert.Equal(t, 2, report.FilesRead)
	assert.Equal(t, 8, report.DescriptorsKept)
	assert.Equal(t, 6, report.DescriptorsRemoved)
	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, ex.calls)
}

func TestAggregate_SkipsFailedExtraction(t *testing.T) {
	dir := corpusDir(t, "a.jpg", "broken.jpg")
	ex := &fakeExtractor{images: map[string]*features.Image{
		"a.jpg": syntheticImage(4, 0, dim),
	}}

	buf, report, err := newAggregator(ex, 0, 1).Aggregate(context.Background(), dir, "*.jpg")
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Len())
	assert.Equal(t, 1, report.FilesSkipped)
	assert.Equal(t, 1, report.FilesRead)
}

func TestAggregate_NonExtractionErrorIsFatal(t *testing.T) {
	dir := corpusDir(t, "a.jpg")
	boom := errors.New("decoder crashed")
	ex := &fakeExtractor{fail: map[string]error{"a.jpg": boom}}

	_, _, err := newAggregator(ex, 0, 1).Aggregate(context.Background(), dir, "*.jpg")
	assert.ErrorIs(t, err, boom)
}

func TestAggregate_DimensionMismatchAborts(t *testing.T) {
	dir := corpusDir(t, "a.jpg", "b.jpg", "c.jpg")
	ex := &fakeExtractor{images: map[string]*features.Image{
		"a.jpg": syntheticImage(4, 0, dim),
		"b.jpg": syntheticImage(4, 0, dim+1),
		"c.jpg": syntheticImage(4, 0, dim),
	}}

	buf, _, err := newAggregator(ex, 0, 1).Aggregate(context.Background(), dir, "*.jpg")
	assert.ErrorIs(t, err, features.ErrDimensionMismatch)
	assert.Nil(t, buf)
}

func TestAggregate_GridTooFineAborts(t *testing.T) {
	dir := corpusDir(t, "tiny.jpg")
	tiny := syntheticImage(1, 0, dim)
	tiny.Size = geometry.NewSize(32, 32)
	ex := &fakeExtractor{images: map[string]*features.Image{"tiny.jpg": tiny}}

	_, _, err := newAggregator(ex, 0, 1).Aggregate(context.Background(), dir, "*.jpg")
	assert.ErrorIs(t, err, features.ErrGridTooFine)
}

func TestAggregate_EmptyCorpus(t *testing.T) {
	dir := corpusDir(t, "readme.txt")
	_, report, err := newAggregator(&fakeExtractor{}, 10, 1).Aggregate(context.Background(), dir, "*.jpg")
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Equal(t, 0, report.FilesMatched)

	// Images that only yield boundary artifacts are just as empty.
	dir = corpusDir(t, "a.jpg")
	ex := &fakeExtractor{images: map[string]*features.Image{"a.jpg": syntheticImage(0, 5, dim)}}
	_, _, err = newAggregator(ex, 10, 1).Aggregate(context.Background(), dir, "*.jpg")
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestAggregate_Cancelled(t *testing.T) {
	dir := corpusDir(t, "a.jpg")
	ex := &fakeExtractor{images: map[string]*features.Image{"a.jpg": syntheticImage(1, 0, dim)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newAggregator(ex, 0, 1).Aggregate(ctx, dir, "*.jpg")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ex.calls)
}

func manyImages(n int) ([]string, *fakeExtractor) {
	ex := &fakeExtractor{images: map[string]*features.Image{}}
	var names []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("img%02d.jpg", i)
		names = append(names, name)
		ex.images[name] = syntheticImage(1+i%7, i%3, dim)
	}
	return names, ex
}

func TestAggregate_CapAndSeed(t *testing.T) {
	names, ex := manyImages(20)
	dir := corpusDir(t, names...)

	buf1, r1, err := newAggregator(ex, 5, 42).Aggregate(context.Background(), dir, "*.jpg")
	require.NoError(t, err)
	assert.Equal(t, 5, r1.FilesRead)
	assert.Len(t, ex.calls, 5)

	buf2, r2, err := newAggregator(ex, 5, 42).Aggregate(context.Background(), dir, "*.jpg")
	require.NoError(t, err)
	assert.Equal(t, buf1.Len(), buf2.Len())
	assert.Equal(t, r1.Processed, r2.Processed)
}

func TestAggregate_CapIndependentOfEnumerationOrder(t *testing.T) {
	names, ex := manyImages(20)
	var forward, reversed []string
	for i := range names {
		forward = append(forward, names[i])
		reversed = append(reversed, names[len(names)-1-i])
	}

	_, rf, err := newAggregator(ex, 5, 9).AggregateFiles(context.Background(), forward)
	require.NoError(t, err)
	_, rr, err := newAggregator(ex, 5, 9).AggregateFiles(context.Background(), reversed)
	require.NoError(t, err)

	assert.LessOrEqual(t, rf.FilesRead, 5)
	assert.LessOrEqual(t, rr.FilesRead, 5)
	// The same permutation applied to reversed input selects the mirrored
	// positions; an odd-sized subset can never be mirror-symmetric.
	assert.NotElementsMatch(t, rf.Processed, rr.Processed)
}
