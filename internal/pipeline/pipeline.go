// Package pipeline runs the three extraction stages in order: descriptor
// aggregation, vocabulary construction and histogram quantization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"bovw-extract/internal/aggregate"
	"bovw-extract/internal/config"
	"bovw-extract/internal/corpus"
	"bovw-extract/internal/features"
	"bovw-extract/internal/histogram"
	"bovw-extract/internal/index"
	"bovw-extract/internal/metrics"
	"bovw-extract/internal/project"
	"bovw-extract/internal/vocab"
)

// StageError tags a failure with the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Deps are the collaborators of a run. Nil fields are built from the config.
type Deps struct {
	Extractor features.Extractor
	Clusterer vocab.Clusterer
	NewIndex  func(*vocab.Vocabulary) (index.Index, error)
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Result collects the per-stage reports of a successful run.
type Result struct {
	Aggregate  *aggregate.Report // nil when the vocabulary was reused
	Vocabulary *vocab.Vocabulary
	Quantize   *histogram.Report
	Manifest   *project.Manifest
}

// Run executes the pipeline described by cfg. Each stage starts only after
// the previous one has succeeded. Once the configuration is valid the
// manifest and metrics are written on every return, so a failed run still
// records the stage that stopped it.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &StageError{Stage: "config", Err: err}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	if deps.Extractor == nil {
		deps.Extractor = cfg.NewExtractor()
	}
	if deps.Clusterer == nil {
		deps.Clusterer = cfg.NewClusterer()
	}
	if deps.NewIndex == nil {
		kind := cfg.Index
		deps.NewIndex = func(v *vocab.Vocabulary) (index.Index, error) {
			return index.New(kind, v)
		}
	}

	manifestPath := cfg.ManifestPath
	if manifestPath == "" {
		manifestPath = project.DefaultPath(cfg.OutputPath)
	}
	m := project.New("bovw")
	m.Pattern = cfg.Pattern
	m.Dimension = cfg.Dimension
	m.Threshold = cfg.Threshold
	m.Seed = cfg.Seed
	m.Grid = cfg.Grid
	m.Clusterer = cfg.Clusterer
	m.Index = cfg.Index
	m.SetPaths(manifestPath, cfg.InputDir, cfg.OutputPath, cfg.VocabularyPath)

	log = log.With("run_id", m.RunID)

	res := &Result{Manifest: m}
	r := runner{cfg: cfg, deps: deps, log: log, manifest: m}
	defer r.finish(manifestPath)

	v, err := r.vocabulary(ctx, res)
	if err != nil {
		return nil, err
	}
	res.Vocabulary = v
	m.Words = v.Len()

	qr, err := r.quantize(ctx, v)
	if err != nil {
		return nil, err
	}
	res.Quantize = qr
	return res, nil
}

type runner struct {
	cfg      config.Config
	deps     Deps
	log      *slog.Logger
	manifest *project.Manifest
}

// finish writes the metrics file and the manifest. Failures are logged and
// never replace the run's own result.
func (r *runner) finish(manifestPath string) {
	if err := r.deps.Metrics.WriteFile(r.cfg.MetricsFile); err != nil {
		r.log.Warn("metrics not written", "path", r.cfg.MetricsFile, "error", err)
	}
	if err := r.manifest.Save(manifestPath); err != nil {
		r.log.Warn("manifest not written", "path", manifestPath, "error", err)
	}
}

// stage times fn and records its outcome in the log, the metrics and the
// manifest.
func (r *runner) stage(name string, fn func() (map[string]int, error)) error {
	start := time.Now()
	counts, err := fn()
	elapsed := time.Since(start)
	r.deps.Metrics.ObserveStage(name, elapsed)

	rec := project.Stage{Name: name, Duration: elapsed, Counts: counts}
	if err != nil {
		rec.Error = err.Error()
		r.manifest.AddStage(rec)
		r.log.Error("stage failed", "stage", name, "elapsed", elapsed, "error", err)
		return &StageError{Stage: name, Err: err}
	}
	r.manifest.AddStage(rec)
	r.log.Info("stage done", "stage", name, "elapsed", elapsed)
	return nil
}

func (r *runner) vocabulary(ctx context.Context, res *Result) (*vocab.Vocabulary, error) {
	if v, ok, err := r.reuse(); err != nil || ok {
		return v, err
	}

	var samples *features.SampleBuffer
	err := r.stage(metrics.StageAggregate, func() (map[string]int, error) {
		a := &aggregate.Aggregator{
			Extractor: r.deps.Extractor,
			Grid:      r.cfg.Grid,
			Dimension: r.cfg.Dimension,
			MaxFiles:  r.cfg.AggregateMax,
			Rand:      corpus.NewRand(r.cfg.Seed),
			Logger:    r.log,
			Metrics:   r.deps.Metrics,
		}
		buf, report, err := a.Aggregate(ctx, r.cfg.InputDir, r.cfg.Pattern)
		res.Aggregate = report
		if err != nil {
			return nil, err
		}
		samples = buf
		return map[string]int{
			"files_matched":       report.FilesMatched,
			"files_read":          report.FilesRead,
			"files_skipped":       report.FilesSkipped,
			"descriptors_kept":    report.DescriptorsKept,
			"descriptors_removed": report.DescriptorsRemoved,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	var v *vocab.Vocabulary
	err = r.stage(metrics.StageVocabulary, func() (map[string]int, error) {
		r.log.Info("clustering", "samples", samples.Len(), "words", r.cfg.Words, "bytes", samples.Bytes())
		built, err := vocab.Build(ctx, r.deps.Clusterer, samples, r.cfg.Words)
		if err != nil {
			return nil, err
		}
		if r.cfg.VocabularyPath != "" {
			if err := vocab.Save(r.cfg.VocabularyPath, built); err != nil {
				return nil, err
			}
		}
		v = built
		return map[string]int{"samples": samples.Len(), "words": built.Len()}, nil
	})
	return v, err
}

// reuse loads a saved vocabulary when the configuration asks for it and the
// file exists.
func (r *runner) reuse() (*vocab.Vocabulary, bool, error) {
	if !r.cfg.ReuseVocabulary {
		return nil, false, nil
	}
	if _, err := os.Stat(r.cfg.VocabularyPath); errors.Is(err, os.ErrNotExist) {
		r.log.Info("no saved vocabulary, building a new one", "path", r.cfg.VocabularyPath)
		return nil, false, nil
	}

	var v *vocab.Vocabulary
	err := r.stage(metrics.StageVocabulary, func() (map[string]int, error) {
		loaded, err := vocab.Load(r.cfg.VocabularyPath)
		if err != nil {
			return nil, err
		}
		if loaded.Dim() != r.cfg.Dimension {
			return nil, fmt.Errorf("saved vocabulary has dimension %d, expected %d: %w",
				loaded.Dim(), r.cfg.Dimension, features.ErrDimensionMismatch)
		}
		if loaded.Len() != r.cfg.Words {
			r.log.Warn("saved vocabulary size differs from configuration",
				"saved", loaded.Len(), "configured", r.cfg.Words)
		}
		v = loaded
		return map[string]int{"words": loaded.Len()}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r.manifest.VocabularyReused = true
	r.log.Info("reusing vocabulary", "path", r.cfg.VocabularyPath, "words", v.Len())
	return v, true, nil
}

func (r *runner) quantize(ctx context.Context, v *vocab.Vocabulary) (*histogram.Report, error) {
	var report *histogram.Report
	err := r.stage(metrics.StageQuantize, func() (map[string]int, error) {
		idx, err := r.deps.NewIndex(v)
		if err != nil {
			return nil, err
		}
		guarded := index.NewGuarded(idx)
		defer guarded.Close()

		sink, err := histogram.CreateSink(r.cfg.OutputPath)
		if err != nil {
			return nil, err
		}

		q := &histogram.Quantizer{
			Extractor: r.deps.Extractor,
			Index:     guarded,
			Sink:      sink,
			Words:     v.Len(),
			Grid:      r.cfg.Grid,
			Dimension: r.cfg.Dimension,
			MaxFiles:  r.cfg.QuantizeMax,
			Workers:   r.cfg.Workers,
			Logger:    r.log,
			Metrics:   r.deps.Metrics,
		}
		rep, runErr := q.Run(ctx, r.cfg.InputDir, r.cfg.Pattern)
		closeErr := sink.Close()
		if runErr != nil {
			return nil, runErr
		}
		if closeErr != nil {
			return nil, closeErr
		}
		report = rep
		r.log.Debug("index lookups", "descriptors", guarded.Queries())
		return map[string]int{
			"files_matched": rep.FilesMatched,
			"dispatched":    rep.Dispatched,
			"written":       rep.Written,
			"undefined":     rep.Undefined,
			"skipped":       rep.Skipped,
		}, nil
	})
	return report, err
}
