// Package vector provides the nearest-neighbour index over paper embeddings.
package vector

import (
	"context"
	"errors"
)

// ErrMismatch is returned by Load when the file was written for another
// model or dimension.
var ErrMismatch = errors.New("vector index mismatch")

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	// Add inserts vectors, replacing any existing vector with the same ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k hits ordered by descending score, skipping IDs in exclude.
	Search(ctx context.Context, query []float32, k int, exclude ...string) ([]*VectorResult, error)
	Get(id string) ([]float32, bool)
	Remove(ctx context.Context, ids []string) error
	Reset()
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit keyed by paper ID.
type VectorResult struct {
	ID    string
	Score float64 // inner product, the cosine similarity of normalised vectors
}
