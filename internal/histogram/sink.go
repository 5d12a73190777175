package histogram

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink is the shared output stream. Every WriteLine is atomic with respect to
// other writers.
type Sink struct {
	mu sync.Mutex
	w  *bufio.Writer
	c  io.Closer
}

// NewSink wraps w. If w is also an io.Closer it is closed by Close.
func NewSink(w io.Writer) *Sink {
	s := &Sink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// CreateSink truncates or creates the file at path.
func CreateSink(path string) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return NewSink(f), nil
}

// WriteLine writes one complete line while holding the sink lock.
func (s *Sink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(line); err != nil {
		return fmt.Errorf("failed to write histogram: %w", err)
	}
	return nil
}

// Close flushes buffered output and closes the underlying writer.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		if s.c != nil {
			s.c.Close()
		}
		return fmt.Errorf("failed to flush histograms: %w", err)
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
