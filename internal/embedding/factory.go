package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/config"
)

// New creates the embedder selected by cfg.Provider, wrapped in an LRU cache
// of cfg.CacheSize entries. When the ONNX runtime is unavailable and
// fallback is true, a MockEmbedder is returned instead and a warning logged.
func New(cfg config.EmbeddingConfig, fallback bool, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case config.ProviderONNX, "":
		e, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			ModelName:  cfg.ModelName,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil && fallback {
			logger.Warn("ONNX embedder unavailable, using mock embeddings", zap.Error(err))
			e, err = NewMockEmbedder(cfg.Dimensions), nil
		}
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.ModelName, cfg.Dimensions)
	case config.ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", e.ModelName()),
		zap.Int("dimensions", e.Dimensions()))
	return WithCache(e, cfg.CacheSize), nil
}
