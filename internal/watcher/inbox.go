package watcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/indexer"
)

// Importer is the part of the indexer the inbox drives.
type Importer interface {
	ImportFile(ctx context.Context, path string) (*indexer.ImportResult, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// NewInbox returns a watcher that imports files appearing in the configured
// directories and deletes the papers of files that disappear. onChange, if
// set, runs after every import or removal that changed the corpus.
func NewInbox(imp Importer, cfg config.WatchConfig, onChange func(), opts ...WatcherOption) *Watcher {
	w := NewWatcher(cfg.Directories, cfg.Extensions, cfg.RecursiveOrDefault(), nil, nil, opts...)
	changed := func() {
		if onChange != nil {
			onChange()
		}
	}
	w.onImport = func(ctx context.Context, path string) {
		res, err := imp.ImportFile(ctx, path)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Warn("inbox import failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		if res.Indexed > 0 || res.Removed > 0 {
			changed()
		}
	}
	w.onRemove = func(ctx context.Context, path string) {
		n, err := imp.DeleteBySource(ctx, path)
		if err != nil {
			w.logger.Warn("inbox removal failed", zap.String("path", path), zap.Error(err))
			return
		}
		if n > 0 {
			w.logger.Info("removed papers of deleted file", zap.String("path", path), zap.Int("papers", n))
			changed()
		}
	}
	return w
}
