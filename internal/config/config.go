// Package config holds the run configuration of the extraction pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bovw-extract/internal/features"
	"bovw-extract/internal/index"
	"bovw-extract/internal/vocab"

	"gopkg.in/yaml.v3"
)

// Clusterer names.
const (
	ClustererOpenCV = "opencv"
	ClustererLloyd  = "lloyd"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete set of run parameters.
type Config struct {
	InputDir   string `yaml:"input_dir"`
	Pattern    string `yaml:"pattern"`
	OutputPath string `yaml:"output"`

	// Threshold is the detector sensitivity; keypoints with a weaker
	// response are discarded. Zero keeps all of them.
	Threshold float64 `yaml:"threshold"`

	Words     int `yaml:"words"`
	Dimension int `yaml:"dimension"`

	AggregateMax int `yaml:"aggregate_max_files"`
	QuantizeMax  int `yaml:"quantize_max_files"`

	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"` // 0 picks a random seed

	Grid   features.Grid       `yaml:"grid"`
	KMeans vocab.KMeansOptions `yaml:"kmeans"`

	Clusterer string `yaml:"clusterer"`
	Index     string `yaml:"index"`

	Preview    bool   `yaml:"preview"`
	PreviewDir string `yaml:"preview_dir"`

	VocabularyPath  string `yaml:"vocabulary"`
	ReuseVocabulary bool   `yaml:"reuse_vocabulary"`

	MetricsFile  string `yaml:"metrics_file"`
	ManifestPath string `yaml:"manifest"`
}

// Default returns the stock configuration: 300 words, 500 images sampled for
// the vocabulary, at most 10000 images quantized.
func Default() Config {
	return Config{
		InputDir:     "img",
		Pattern:      "*.jpg",
		OutputPath:   "histogram.txt",
		Words:        300,
		Dimension:    features.DefaultDimension,
		AggregateMax: 500,
		QuantizeMax:  10000,
		Grid:         features.DefaultGrid(),
		KMeans:       vocab.DefaultKMeansOptions(),
		Clusterer:    ClustererOpenCV,
		Index:        index.KindFLANN,
		PreviewDir:   "preview",
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that can be judged before any image is read.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return fmt.Errorf("%w: input directory is empty", ErrInvalid)
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalid)
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil || c.Pattern == "" {
		return fmt.Errorf("%w: bad file pattern %q", ErrInvalid, c.Pattern)
	}
	if c.Words <= 0 {
		return fmt.Errorf("%w: vocabulary size must be positive, got %d", ErrInvalid, c.Words)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: descriptor dimension must be positive, got %d", ErrInvalid, c.Dimension)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: negative threshold %g", ErrInvalid, c.Threshold)
	}
	if err := c.Grid.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Clusterer {
	case ClustererOpenCV, ClustererLloyd:
	default:
		return fmt.Errorf("%w: unknown clusterer %q", ErrInvalid, c.Clusterer)
	}
	switch c.Index {
	case "", index.KindFLANN, index.KindFlat:
	default:
		return fmt.Errorf("%w: unknown index %q", ErrInvalid, c.Index)
	}
	if c.ReuseVocabulary && c.VocabularyPath == "" {
		return fmt.Errorf("%w: reuse_vocabulary needs a vocabulary path", ErrInvalid)
	}
	if c.Preview && c.PreviewDir == "" {
		return fmt.Errorf("%w: preview needs a preview directory", ErrInvalid)
	}
	return nil
}

// NewClusterer returns the clusterer named by c.Clusterer.
func (c *Config) NewClusterer() vocab.Clusterer {
	if c.Clusterer == ClustererLloyd {
		return &vocab.Lloyd{MaxIter: c.KMeans.MaxIter, Seed: c.Seed}
	}
	return vocab.NewKMeans(c.KMeans)
}

// NewExtractor returns the SIFT extractor for this configuration.
func (c *Config) NewExtractor() *features.SIFTExtractor {
	opts := features.SIFTOptions{Threshold: c.Threshold}
	if c.Preview {
		opts.PreviewDir = c.PreviewDir
	}
	return features.NewSIFTExtractor(opts)
}
