package embedding

import (
	"context"
	"strings"
)

// MockEmbedder is a deterministic embedder for tests and for running without
// a model. Each word is hashed into one signed dimension, so texts sharing
// vocabulary get similar vectors.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the normalised bag-of-words vector of text. The [SEP]
// marker is treated as whitespace.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	for _, w := range SplitWords(strings.ToLower(strings.ReplaceAll(text, sepToken, " "))) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w == "" {
			continue
		}
		h := HashString(w)
		sign := float32(1)
		if h&1 == 1 {
			sign = -1
		}
		emb[int(h>>1)%e.dimensions] += sign
	}
	NormalizeL2Slice(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(texts, func(t string) ([]float32, error) { return e.Embed(ctx, t) })
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns "mock".
func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
