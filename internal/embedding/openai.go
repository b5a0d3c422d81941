package embedding

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder returns an embedder for model at baseURL (empty for the
// public API). dimensions is requested from models that support shortening.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dimensions int) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("openai embedder: model name required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("openai embedder: dimensions must be positive")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed returns the embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in a single request. The title/abstract
// separator is replaced by a newline since these models have no pair input.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = strings.ReplaceAll(t, sepToken, "\n")
		if strings.TrimSpace(input[i]) == "" {
			return nil, ErrEmptyText
		}
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("create embeddings: got %d dimensions, want %d", len(d.Embedding), e.dimensions)
		}
		NormalizeL2Slice(d.Embedding)
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the remote model name.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
