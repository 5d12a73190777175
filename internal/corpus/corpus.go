// Package corpus enumerates and samples the image files of an input directory.
package corpus

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotDirectory is returned when the input path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// List returns the regular files directly inside dir whose base name matches
// the glob pattern, in lexical order. Subdirectories are not descended into.
func List(dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot open directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Sample returns a uniformly random subset of at most max paths, in random
// order. paths is not modified. A non-positive max keeps every path.
func Sample(paths []string, max int, rng *rand.Rand) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// NewRand returns a deterministic source for a non-zero seed and a
// time-seeded one otherwise.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}
