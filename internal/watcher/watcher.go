// Package watcher imports papers dropped into inbox directories and removes
// them again when their files disappear.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Handler is called with the path of a changed or removed file.
type Handler func(ctx context.Context, path string)

// Watcher watches inbox directories and calls onImport for created or
// written files (debounced) and onRemove for files removed or renamed away.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onImport   Handler
	onRemove   Handler
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	ctx        context.Context
	mu         sync.Mutex
	pending    map[string]*time.Timer
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is imported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over roots. extensions filters which files
// are reported (empty means all).
func NewWatcher(roots, extensions []string, recursive bool, onImport, onRemove Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		roots:      append([]string(nil), roots...),
		extensions: extensions,
		recursive:  recursive,
		onImport:   onImport,
		onRemove:   onRemove,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates missing roots, watches them and handles events until ctx
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	for i, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			_ = fw.Close()
			w.mu.Unlock()
			return err
		}
		w.roots[i] = filepath.Clean(abs)
		if err := w.addRoot(fw, w.roots[i]); err != nil {
			_ = fw.Close()
			w.mu.Unlock()
			return err
		}
	}
	w.watcher = fw
	w.ctx = ctx
	w.started = true
	w.mu.Unlock()

	w.logger.Info("watching inbox",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.underRoot(path) || ignored(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if matchExtension(path, w.extensions) && w.onRemove != nil {
			w.onRemove(w.context(), path)
		}
	}
}

// handleNewDirectory watches a directory created or moved into a root and
// imports the files already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil || !w.recursive {
		return
	}
	if err := w.addRoot(fw, dir); err != nil {
		w.logger.Warn("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	w.syncDirectory(dir)
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

func (w *Watcher) underRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if inDir(root, path) {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ignored reports editor, office and download temporaries.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "~$"):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".part"), strings.HasSuffix(base, ".crdownload"):
		return true
	}
	return false
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule imports path once it has been quiet for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		ctx := w.ctx
		w.mu.Unlock()
		if w.onImport != nil {
			w.onImport(ctx, path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// addRoot creates root if needed and watches it, plus its subdirectories
// when recursive.
func (w *Watcher) addRoot(fw *fsnotify.Watcher, root string) error {
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	if !w.recursive {
		return fw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && ignored(path) {
				return filepath.SkipDir
			}
			return fw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) syncDirectory(root string) {
	ctx := w.context()
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (!w.recursive || ignored(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored(path) || !matchExtension(path, w.extensions) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.onImport != nil {
			w.onImport(ctx, path)
		}
		return nil
	})
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles imports every matching file already in the roots. Call
// it after Start to pick up files dropped while the service was down.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and cancels pending imports.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	fw := w.watcher
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	_ = fw.Close()
}
