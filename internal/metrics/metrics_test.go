package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.ImageRead(StageAggregate, 40, 2)
	r.ImageRead(StageAggregate, 10, 0)
	r.ImageSkipped(StageQuantize)
	r.HistogramWritten(true)
	r.HistogramWritten(false)
	r.HistogramWritten(false)
	r.ObserveStage(StageVocabulary, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ImagesRead.WithLabelValues(StageAggregate)))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.DescriptorsKept.WithLabelValues(StageAggregate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.DescriptorsRemoved.WithLabelValues(StageAggregate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ImagesSkipped.WithLabelValues(StageQuantize)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.HistogramsWritten.WithLabelValues("numeric")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HistogramsWritten.WithLabelValues("undefined")))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ImageRead(StageAggregate, 1, 1)
		r.ImageSkipped(StageAggregate)
		r.HistogramWritten(false)
		r.ObserveStage(StageQuantize, time.Second)
	})
	assert.NoError(t, r.WriteFile("ignored.prom"))
}

func TestRecorder_WriteFile(t *testing.T) {
	r := New()
	r.ImageRead(StageQuantize, 3, 1)

	path := filepath.Join(t.TempDir(), "bovw.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bovw_descriptors_kept_total{stage="quantize"} 3`)
}
