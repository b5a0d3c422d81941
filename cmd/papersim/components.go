package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/embedding"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/indexer"
	"github.com/hyperjump/papersim/internal/keyword"
	"github.com/hyperjump/papersim/internal/search"
	"github.com/hyperjump/papersim/internal/storage"
	"github.com/hyperjump/papersim/internal/vector"
)

// Components holds the initialized storage, indices and services.
type Components struct {
	Storage      *storage.SQLiteStorage
	Embedder     embedding.Embedder
	VectorIndex  *vector.MemoryIndex
	KeywordIndex *keyword.BleveIndex
	Extractor    *frontmatter.Extractor
	Engine       *search.Engine
	Indexer      *indexer.Indexer
}

// Close releases every component that was opened.
func (c *Components) Close() {
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	var err error
	c.Storage, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Embedder, err = embedding.New(cfg.Embedding, true, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.VectorIndex, err = vector.NewMemoryIndex(c.Embedder.ModelName(), c.Embedder.Dimensions())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.KeywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Extractor = frontmatter.New(frontmatter.WithLogger(logger))
	c.Engine = search.NewEngine(c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex, &cfg.Search, search.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(c.Storage, c.Embedder, c.VectorIndex, c.KeywordIndex,
		indexer.WithLogger(logger), indexer.WithExtractor(c.Extractor))

	if err := c.Indexer.LoadVectors(ctx, cfg.Storage.VectorIndexPath); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to load vector index: %w", err)
	}
	return c, nil
}

// vectorSaver writes the vector index to disk once changes have settled,
// so bursts of imports cost a single write.
type vectorSaver struct {
	idx    *indexer.Indexer
	path   string
	delay  time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func newVectorSaver(idx *indexer.Indexer, path string, delay time.Duration, logger *zap.Logger) *vectorSaver {
	return &vectorSaver{idx: idx, path: path, delay: delay, logger: logger}
}

// Changed schedules a save.
func (s *vectorSaver) Changed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { _ = s.Flush() })
}

// Flush cancels any pending save and saves now.
func (s *vectorSaver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if err := s.idx.SaveVectors(s.path); err != nil {
		s.logger.Warn("vector index save failed", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.logger.Debug("vector index saved", zap.String("path", s.path))
	return nil
}
