package histogram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"bovw-extract/internal/corpus"
	"bovw-extract/internal/features"
	"bovw-extract/internal/index"
	"bovw-extract/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// Quantizer turns images into word histograms with a bounded worker pool.
// The index and the sink are the only shared state.
type Quantizer struct {
	Extractor features.Extractor
	Index     *index.Guarded
	Sink      *Sink
	Words     int // Vocabulary size K
	Grid      features.Grid
	Dimension int
	MaxFiles  int // Cap on dispatched images; <= 0 means no cap
	Workers   int // Pool width; <= 0 means runtime.NumCPU()
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Report summarises a quantization pass.
type Report struct {
	FilesMatched int
	Dispatched   int
	Written      int
	Undefined    int // Rows written with every field undefined
	Skipped      int // Images whose extraction failed
	CapReached   bool
}

// Run enumerates dir and writes one line per readable image to the sink.
func (q *Quantizer) Run(ctx context.Context, dir, pattern string) (*Report, error) {
	paths, err := corpus.List(dir, pattern)
	if err != nil {
		return nil, err
	}
	return q.RunFiles(ctx, paths)
}

// RunFiles quantizes paths in enumeration order. Dispatch stops once MaxFiles
// images have been handed to workers or a worker fails fatally; images
// already dispatched run to completion.
func (q *Quantizer) RunFiles(ctx context.Context, paths []string) (*Report, error) {
	if err := q.Grid.Validate(); err != nil {
		return nil, err
	}
	log := q.logger()
	workers := q.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var written, undefined, skipped atomic.Int64
	report := &Report{FilesMatched: len(paths)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for n, path := range paths {
		if gctx.Err() != nil {
			break
		}
		if q.MaxFiles > 0 && report.Dispatched >= q.MaxFiles {
			report.CapReached = true
			log.Info("file cap reached, stopping dispatch", "cap", q.MaxFiles)
			break
		}
		report.Dispatched++

		g.Go(func() error {
			log.Debug("quantizing", "n", n+1, "path", path)
			hist, err := q.quantize(gctx, path)
			if err != nil {
				if features.IsExtractionError(err) {
					log.Warn("extraction failed, skipping image", "n", n+1, "path", path, "error", err)
					skipped.Add(1)
					q.Metrics.ImageSkipped(metrics.StageQuantize)
					return nil
				}
				return err
			}

			if err := q.Sink.WriteLine(hist.Line()); err != nil {
				return err
			}
			written.Add(1)
			if hist.Total == 0 {
				undefined.Add(1)
			}
			q.Metrics.HistogramWritten(hist.Total == 0)
			return nil
		})
	}

	err := g.Wait()
	report.Written = int(written.Load())
	report.Undefined = int(undefined.Load())
	report.Skipped = int(skipped.Load())
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	log.Info("histograms written",
		"written", report.Written,
		"undefined", report.Undefined,
		"skipped", report.Skipped,
		"matched", report.FilesMatched,
	)
	return report, nil
}

// quantize builds the histogram of one image. Only the index query touches
// shared state.
func (q *Quantizer) quantize(ctx context.Context, path string) (*Histogram, error) {
	img, err := q.Extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := img.CheckDimension(q.Dimension); err != nil {
		return nil, err
	}
	kept, removed, err := features.FilterImage(img, q.Grid)
	if err != nil {
		return nil, err
	}
	q.Metrics.ImageRead(metrics.StageQuantize, len(kept), removed)

	hist := NewHistogram(path, q.Words)
	if len(kept) == 0 {
		return hist, nil
	}

	queries := make([]features.Descriptor, len(kept))
	for i, f := range kept {
		queries[i] = f.Descriptor
	}
	words, err := q.Index.NearestBatch(queries)
	if err != nil {
		return nil, err
	}
	for _, w := range words {
		if w < 0 || w >= q.Words {
			return nil, fmt.Errorf("%s: index returned word %d outside vocabulary of %d", path, w, q.Words)
		}
		hist.Add(w)
	}
	return hist, nil
}

func (q *Quantizer) logger() *slog.Logger {
	if q.Logger != nil {
		return q.Logger
	}
	return slog.Default()
}
