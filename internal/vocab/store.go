package vocab

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

// Save writes the vocabulary to path as a zstd-compressed gonum binary matrix.
func Save(path string, v *Vocabulary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}

	bw := bufio.NewWriter(f)
	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := v.Dense().MarshalBinaryTo(enc); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to compress vocabulary: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return f.Close()
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(dec); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return FromDense(&m)
}
