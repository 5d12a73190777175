// Command bovw builds a visual-word vocabulary from a directory of images and
// writes one word-frequency histogram per image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bovw-extract/internal/config"
	"bovw-extract/internal/metrics"
	"bovw-extract/internal/pipeline"
	"bovw-extract/internal/version"
)

// options are the flags that are not part of the run configuration.
type options struct {
	configPath  string
	verbose     bool
	showVersion bool
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error in config: %v\n", err)
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Printf("bovw %s\n", version.String())
		return
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Info("starting bovw", "version", version.Version, "input", cfg.InputDir, "output", cfg.OutputPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.Run(ctx, cfg, pipeline.Deps{Logger: logger, Metrics: metrics.New()})
	if err != nil {
		var se *pipeline.StageError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "error in %s: %v\n", se.Stage, se.Err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Wrote %d histograms (%d undefined, %d skipped) to %s\n",
		res.Quantize.Written, res.Quantize.Undefined, res.Quantize.Skipped, cfg.OutputPath)
}

// parseArgs builds the run configuration: defaults, then the -config file,
// then any flag given on the command line.
func parseArgs(args []string, stderr io.Writer) (config.Config, options, error) {
	cfg := config.Default()
	var opts options
	fs := newFlagSet(&cfg, &opts, stderr)
	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if fs.NArg() > 0 {
		return cfg, opts, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.configPath == "" {
		return cfg, opts, nil
	}

	loaded, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, opts, err
	}
	// Parse again over the file values so explicit flags win.
	fs = newFlagSet(&loaded, &opts, stderr)
	if err := fs.Parse(args); err != nil {
		return loaded, opts, err
	}
	return loaded, opts, nil
}

func newFlagSet(cfg *config.Config, opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("bovw", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose (debug) logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	fs.StringVar(&cfg.InputDir, "input", cfg.InputDir, "Directory of input images")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "Glob matched against file names")
	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Histogram output file")
	fs.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Minimum keypoint response")
	fs.IntVar(&cfg.Words, "words", cfg.Words, "Vocabulary size")
	fs.IntVar(&cfg.Dimension, "dim", cfg.Dimension, "Descriptor length")
	fs.IntVar(&cfg.AggregateMax, "aggregate-max", cfg.AggregateMax, "Images sampled for the vocabulary")
	fs.IntVar(&cfg.QuantizeMax, "quantize-max", cfg.QuantizeMax, "Images quantized at most")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Quantization workers (0 = number of CPUs)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Sampling seed (0 = random)")
	fs.IntVar(&cfg.Grid.HorizontalBlocks, "grid-x", cfg.Grid.HorizontalBlocks, "Boundary grid divisions along X")
	fs.IntVar(&cfg.Grid.VerticalBlocks, "grid-y", cfg.Grid.VerticalBlocks, "Boundary grid divisions along Y")
	fs.IntVar(&cfg.Grid.Gap, "gap", cfg.Grid.Gap, "Boundary margin in pixels")
	fs.StringVar(&cfg.Clusterer, "clusterer", cfg.Clusterer, "Clusterer: opencv or lloyd")
	fs.StringVar(&cfg.Index, "index", cfg.Index, "Nearest-word index: flann or flat")
	fs.BoolVar(&cfg.Preview, "preview", cfg.Preview, "Write keypoint previews")
	fs.StringVar(&cfg.PreviewDir, "preview-dir", cfg.PreviewDir, "Directory for keypoint previews")
	fs.StringVar(&cfg.VocabularyPath, "vocab", cfg.VocabularyPath, "Vocabulary file to save or reuse")
	fs.BoolVar(&cfg.ReuseVocabulary, "reuse-vocab", cfg.ReuseVocabulary, "Reuse the vocabulary file when it exists")
	fs.StringVar(&cfg.MetricsFile, "metrics", cfg.MetricsFile, "Write Prometheus metrics to this file")
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "Run manifest path (default next to output)")

	// Legacy names.
	fs.StringVar(&cfg.InputDir, "INPUT_IMAGE_DIR", cfg.InputDir, "Alias of -input")
	fs.StringVar(&cfg.Pattern, "INPUT_FILE_NAME_PATTERN", cfg.Pattern, "Alias of -pattern")
	fs.StringVar(&cfg.OutputPath, "OUTPUT_FILE_NAME", cfg.OutputPath, "Alias of -output")
	fs.Float64Var(&cfg.Threshold, "SURF_HESSIAN_THRESHOLD", cfg.Threshold, "Alias of -threshold")
	fs.IntVar(&cfg.Words, "MAX_CLUSTER", cfg.Words, "Alias of -words")
	fs.BoolVar(&cfg.Preview, "IS_PREVIEW_SURF", cfg.Preview, "Alias of -preview")
	fs.IntVar(&cfg.AggregateMax, "MAX_INPUT_FILE_CLUSTERING", cfg.AggregateMax, "Alias of -aggregate-max")
	fs.IntVar(&cfg.QuantizeMax, "MAX_INPUT_FILE_HISTOGRAM", cfg.QuantizeMax, "Alias of -quantize-max")

	return fs
}
