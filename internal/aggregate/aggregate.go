// Package aggregate collects boundary-filtered descriptors from a random,
// size-capped sample of the corpus into one growing sample buffer.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"bovw-extract/internal/corpus"
	"bovw-extract/internal/features"
	"bovw-extract/internal/metrics"
)

// ErrNoSamples is returned when no descriptor survived aggregation.
var ErrNoSamples = errors.New("no descriptors collected")

// Aggregator runs the sequential aggregation pass. It owns the sample buffer
// exclusively until Aggregate returns.
type Aggregator struct {
	Extractor features.Extractor
	Grid      features.Grid
	Dimension int
	MaxFiles  int        // Cap on images read; <= 0 means no cap
	Rand      *rand.Rand // Source for the sampling permutation
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Report summarises an aggregation pass.
type Report struct {
	FilesMatched       int
	FilesSelected      int
	FilesRead          int
	FilesSkipped       int
	DescriptorsKept    int
	DescriptorsRemoved int
	Processed          []string // Paths read successfully, in processing order
}

// Aggregate enumerates dir, shuffles and truncates the file list to MaxFiles,
// and appends the surviving descriptors of every readable image.
func (a *Aggregator) Aggregate(ctx context.Context, dir, pattern string) (*features.SampleBuffer, *Report, error) {
	paths, err := corpus.List(dir, pattern)
	if err != nil {
		return nil, nil, err
	}
	return a.AggregateFiles(ctx, paths)
}

// AggregateFiles is Aggregate over an already enumerated file list.
func (a *Aggregator) AggregateFiles(ctx context.Context, paths []string) (*features.SampleBuffer, *Report, error) {
	if err := a.Grid.Validate(); err != nil {
		return nil, nil, err
	}
	log := a.logger()
	rng := a.Rand
	if rng == nil {
		rng = corpus.NewRand(0)
	}

	selected := corpus.Sample(paths, a.MaxFiles, rng)
	report := &Report{FilesMatched: len(paths), FilesSelected: len(selected)}
	if a.MaxFiles > 0 && len(paths) > a.MaxFiles {
		log.Info("file cap reached, sampling subset", "cap", a.MaxFiles, "matched", len(paths))
	}

	buf := features.NewSampleBuffer(a.Dimension)
	for n, path := range selected {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		img, err := a.Extractor.Extract(ctx, path)
		if err != nil {
			if features.IsExtractionError(err) {
				log.Warn("extraction failed, skipping image", "n", n, "path", path, "error", err)
				report.FilesSkipped++
				a.Metrics.ImageSkipped(metrics.StageAggregate)
				continue
			}
			return nil, report, err
		}

		if err := img.CheckDimension(a.Dimension); err != nil {
			return nil, report, err
		}
		kept, removed, err := features.FilterImage(img, a.Grid)
		if err != nil {
			return nil, report, err
		}
		if err := buf.AppendFeatures(kept); err != nil {
			return nil, report, err
		}

		report.FilesRead++
		report.DescriptorsKept += len(kept)
		report.DescriptorsRemoved += removed
		report.Processed = append(report.Processed, path)
		a.Metrics.ImageRead(metrics.StageAggregate, len(kept), removed)

		log.Info("descriptors collected",
			"n", n,
			"path", path,
			"descriptors", len(kept),
			"removed", removed,
			"memory", buf.Bytes(),
		)
	}

	log.Info("total feature points", "descriptors", buf.Len(), "images", report.FilesRead)

	if buf.Len() == 0 {
		return nil, report, fmt.Errorf("%w: %d files matched, %d read", ErrNoSamples, report.FilesMatched, report.FilesRead)
	}
	return buf, report, nil
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
