// Package config provides configuration loading and structs for the papersim server and CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RateLimit      float64       `yaml:"rate_limit"` // requests per second; 0 uses the default, negative disables
	RateBurst      int           `yaml:"rate_burst"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // onnx, openai or mock
	ModelPath  string `yaml:"model_path"`
	ModelName  string `yaml:"model_name"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	DefaultLimit      int     `yaml:"default_limit"`
	MaxLimit          int     `yaml:"max_limit"`
	TopKCandidates    int     `yaml:"top_k_candidates"`
	KeywordTitleBoost float64 `yaml:"keyword_title_boost"`
	KeywordWeight     float64 `yaml:"keyword_weight"`
	SemanticWeight    float64 `yaml:"semantic_weight"`
	DefaultMinScore   float64 `yaml:"default_min_score"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, fills unset fields from
// the environment, applies defaults and expands paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the default
// configuration (with environment overrides) instead of an error.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg = &Config{}
	ApplyEnv(cfg)
	ApplyDefaults(cfg)
	cfg.expandPaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) expandPaths(configDir string) {
	c.Storage.DatabasePath = expandPath(c.Storage.DatabasePath, configDir)
	c.Storage.BleveIndexPath = expandPath(c.Storage.BleveIndexPath, configDir)
	c.Storage.VectorIndexPath = expandPath(c.Storage.VectorIndexPath, configDir)
	if c.Embedding.ModelPath != "" {
		c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	}
	for i := range c.Watch.Directories {
		c.Watch.Directories[i] = expandPath(c.Watch.Directories[i], configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" to the home directory; other relative paths are relative to the home directory too.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
