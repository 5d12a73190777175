// Package metrics defines the Prometheus instruments of the extraction pipeline.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage labels.
const (
	StageAggregate  = "aggregate"
	StageVocabulary = "vocabulary"
	StageQuantize   = "quantize"
)

// Recorder groups the pipeline counters. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ImagesRead         *prometheus.CounterVec
	ImagesSkipped      *prometheus.CounterVec
	DescriptorsKept    *prometheus.CounterVec
	DescriptorsRemoved *prometheus.CounterVec
	HistogramsWritten  *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ImagesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_images_read_total",
			Help: "Images whose features were extracted",
		}, []string{"stage"}),
		ImagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_images_skipped_total",
			Help: "Images skipped because extraction failed",
		}, []string{"stage"}),
		DescriptorsKept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_descriptors_kept_total",
			Help: "Descriptors surviving boundary filtering",
		}, []string{"stage"}),
		DescriptorsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_descriptors_removed_total",
			Help: "Descriptors removed near internal grid lines",
		}, []string{"stage"}),
		HistogramsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_histograms_written_total",
			Help: "Histogram rows written, by kind (numeric or undefined)",
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bovw_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage",
			Buckets: []float64{0.1, 1, 5, 30, 60, 300, 900, 3600},
		}, []string{"stage"}),
	}
	r.registry.MustRegister(
		r.ImagesRead,
		r.ImagesSkipped,
		r.DescriptorsKept,
		r.DescriptorsRemoved,
		r.HistogramsWritten,
		r.StageDuration,
	)
	return r
}

// ImageRead records one extracted image and its filter outcome.
func (r *Recorder) ImageRead(stage string, kept, removed int) {
	if r == nil {
		return
	}
	r.ImagesRead.WithLabelValues(stage).Inc()
	r.DescriptorsKept.WithLabelValues(stage).Add(float64(kept))
	r.DescriptorsRemoved.WithLabelValues(stage).Add(float64(removed))
}

// ImageSkipped records one failed extraction.
func (r *Recorder) ImageSkipped(stage string) {
	if r == nil {
		return
	}
	r.ImagesSkipped.WithLabelValues(stage).Inc()
}

// HistogramWritten records one output row.
func (r *Recorder) HistogramWritten(undefined bool) {
	if r == nil {
		return
	}
	kind := "numeric"
	if undefined {
		kind = "undefined"
	}
	r.HistogramsWritten.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// WriteFile writes the current values in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
