// Package index provides 1-nearest-neighbour lookup of descriptors against a
// visual-word vocabulary.
package index

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"bovw-extract/internal/features"
	"bovw-extract/internal/vocab"
)

// ErrUnknownKind is returned by New for an unrecognised index kind.
var ErrUnknownKind = errors.New("unknown index kind")

// Index maps each query descriptor to the position of its nearest word.
// Implementations are not required to be safe for concurrent use.
type Index interface {
	Nearest(queries []features.Descriptor) ([]int, error)
	Close() error
}

// Index kinds accepted by New.
const (
	KindFLANN = "flann"
	KindFlat  = "flat"
)

// New builds an index of the given kind over v.
func New(kind string, v *vocab.Vocabulary) (Index, error) {
	switch kind {
	case KindFLANN, "":
		return NewFLANN(v)
	case KindFlat:
		return NewFlat(v), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Guarded serialises access to an Index. Only the batch query is exposed.
type Guarded struct {
	mu      sync.Mutex
	idx     Index
	queries atomic.Int64
}

// NewGuarded wraps idx.
func NewGuarded(idx Index) *Guarded {
	return &Guarded{idx: idx}
}

// NearestBatch runs one batched query while holding the index lock.
func (g *Guarded) NearestBatch(queries []features.Descriptor) ([]int, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	g.mu.Lock()
	words, err := g.idx.Nearest(queries)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(words) != len(queries) {
		return nil, fmt.Errorf("index returned %d results for %d queries", len(words), len(queries))
	}
	g.queries.Add(int64(len(queries)))
	return words, nil
}

// Queries returns the number of descriptors looked up so far.
func (g *Guarded) Queries() int64 {
	return g.queries.Load()
}

// Close releases the underlying index.
func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx.Close()
}
