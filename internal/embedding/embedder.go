// Package embedding turns paper text into unit-length vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyText is returned when asked to embed blank text.
var ErrEmptyText = errors.New("empty text")

// Embedder produces vector embeddings for text. Vectors are L2-normalised so
// the inner product of two of them is their cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// ModelName identifies the vector space. Vectors from different models
	// are never compared.
	ModelName() string
	Close() error
}
