// Package project provides the run manifest written next to the histogram file.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bovw-extract/internal/features"

	"github.com/google/uuid"
)

// Manifest records what a pipeline run read, built and wrote (.bovw.json).
type Manifest struct {
	Version  int       `json:"version"`
	RunID    string    `json:"run_id"`
	Tool     string    `json:"tool"`
	Created  time.Time `json:"created"`
	Finished time.Time `json:"finished,omitempty"`

	// Paths (relative to the manifest file)
	InputDir       string `json:"input_dir"`
	Pattern        string `json:"pattern"`
	OutputPath     string `json:"output"`
	VocabularyPath string `json:"vocabulary,omitempty"`

	// Parameters
	Words     int           `json:"words"`
	Dimension int           `json:"dimension"`
	Threshold float64       `json:"threshold"`
	Seed      int64         `json:"seed"`
	Grid      features.Grid `json:"grid"`
	Clusterer string        `json:"clusterer"`
	Index     string        `json:"index"`

	VocabularyReused bool `json:"vocabulary_reused"`

	Stages []Stage `json:"stages,omitempty"`
}

// Stage is the outcome of one pipeline stage.
type Stage struct {
	Name     string         `json:"name"`
	Duration time.Duration  `json:"duration_ns"`
	Error    string         `json:"error,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
}

// New creates a manifest stamped with the current time.
func New(tool string) *Manifest {
	return &Manifest{
		Version: 1,
		RunID:   uuid.New().String(),
		Tool:    tool,
		Created: time.Now(),
	}
}

// AddStage appends a stage record.
func (m *Manifest) AddStage(s Stage) {
	m.Stages = append(m.Stages, s)
}

// Load loads a manifest from a file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// Save writes the manifest, stamping the finish time.
func (m *Manifest) Save(path string) error {
	m.Finished = time.Now()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetPaths stores the run paths relative to the manifest location.
func (m *Manifest) SetPaths(manifestPath, inputDir, output, vocabulary string) {
	m.InputDir = relative(manifestPath, inputDir)
	m.OutputPath = relative(manifestPath, output)
	if vocabulary != "" {
		m.VocabularyPath = relative(manifestPath, vocabulary)
	}
}

// DefaultPath returns the manifest path for an output file:
// histogram.txt -> histogram.bovw.json.
func DefaultPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".bovw.json"
}

func relative(manifestPath, p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	base, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return p
	}
	return rel
}
