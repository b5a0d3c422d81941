package server

import (
	"context"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/search"
	"github.com/hyperjump/papersim/internal/storage"
)

// Status summarizes the corpus and the running configuration.
type Status struct {
	Papers           int64        `json:"papers"`
	Embeddings       int64        `json:"embeddings"`
	VectorIndexSize  int          `json:"vector_index_size"`
	Model            string       `json:"model"`
	DiskUsageBytes   int64        `json:"disk_usage_bytes"`
	WatchDirectories []string     `json:"watch_directories,omitempty"`
	Config           StatusConfig `json:"config"`
}

// StatusConfig is the subset of the configuration reported by Status.
type StatusConfig struct {
	Provider       string  `json:"embedding_provider"`
	Dimensions     int     `json:"dimensions"`
	DefaultLimit   int     `json:"default_limit"`
	MaxLimit       int     `json:"max_limit"`
	KeywordWeight  float64 `json:"keyword_weight"`
	SemanticWeight float64 `json:"semantic_weight"`
	DatabasePath   string  `json:"database_path"`
}

// CollectStatus gathers counts and disk usage. It is shared by the status
// endpoint and the status command.
func CollectStatus(ctx context.Context, store storage.Storage, engine *search.Engine, cfg *config.Config, watchDirs []string) (*Status, error) {
	papers, err := store.CountPapers(ctx)
	if err != nil {
		return nil, err
	}
	embeddings, err := store.CountEmbeddings(ctx, engine.ModelName())
	if err != nil {
		return nil, err
	}
	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.BleveIndexPath, cfg.Storage.VectorIndexPath)
	usage, err := storage.DiskUsageBytes(paths...)
	if err != nil {
		return nil, err
	}
	return &Status{
		Papers:           papers,
		Embeddings:       embeddings,
		VectorIndexSize:  engine.VectorIndexSize(),
		Model:            engine.ModelName(),
		DiskUsageBytes:   usage,
		WatchDirectories: watchDirs,
		Config: StatusConfig{
			Provider:       cfg.Embedding.Provider,
			Dimensions:     cfg.Embedding.Dimensions,
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			KeywordWeight:  cfg.Search.KeywordWeight,
			SemanticWeight: cfg.Search.SemanticWeight,
			DatabasePath:   cfg.Storage.DatabasePath,
		},
	}, nil
}
