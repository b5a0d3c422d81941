package config

import "time"

// Provider names accepted in embedding.provider.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/papersim/data/db/papers.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/papersim/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/papersim/data/indices/vectors.bin"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderONNX
	}
	if cfg.Embedding.Provider == ProviderONNX && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/papersim/data/models/allenai-specter.onnx"
	}
	if cfg.Embedding.ModelName == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.ModelName = "text-embedding-3-small"
		case ProviderMock:
			cfg.Embedding.ModelName = "mock"
		default:
			cfg.Embedding.ModelName = "allenai-specter"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 3
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.KeywordTitleBoost == 0 {
		cfg.Search.KeywordTitleBoost = 3.0
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.SemanticWeight = 0.7
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".jsonl", ".json", ".xlsx", ".pdf", ".docx", ".odt", ".rtf"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
