// Package indexer stores papers and keeps the vector and keyword indices in
// step with storage.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/embedding"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/keyword"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/paperid"
	"github.com/hyperjump/papersim/internal/storage"
	"github.com/hyperjump/papersim/internal/vector"
)

// batchSize is the number of papers embedded per EmbedBatch call.
const batchSize = 32

// ErrInvalidPaper is returned when a paper lacks a title or an abstract.
var ErrInvalidPaper = errors.New("paper needs both title and abstract")

// Indexer writes papers to storage, the vector index and the keyword index.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	extractor    *frontmatter.Extractor
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithExtractor sets the front-matter extractor used for paper files.
func WithExtractor(e *frontmatter.Extractor) IndexerOption {
	return func(idx *Indexer) {
		if e != nil {
			idx.extractor = e
		}
	}
}

// NewIndexer creates an indexer with the given dependencies. keywordIndex may be nil.
func NewIndexer(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.extractor == nil {
		idx.extractor = frontmatter.New(frontmatter.WithLogger(idx.logger))
	}
	return idx
}

// paperFromInput normalises an input into a paper with a stable ID.
func paperFromInput(in *models.PaperInput) (*models.Paper, error) {
	p := &models.Paper{
		Title:    Preprocess(in.Title),
		Abstract: Preprocess(in.Abstract),
		URL:      strings.TrimSpace(in.URL),
		Year:     in.Year,
		Source:   in.Source,
	}
	if p.Title == "" || p.Abstract == "" {
		return nil, ErrInvalidPaper
	}
	norm := *in
	norm.Title, norm.URL = p.Title, p.URL
	p.ID = paperid.For(&norm)
	return p, nil
}

// IndexPaper stores a paper, embeds it and adds it to both indices. An
// existing paper with the same ID is replaced.
func (idx *Indexer) IndexPaper(ctx context.Context, in *models.PaperInput) (*models.Paper, error) {
	p, err := paperFromInput(in)
	if err != nil {
		return nil, err
	}
	if err := idx.indexBatch(ctx, []*models.Paper{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// IndexPapers indexes inputs in batches. Inputs without title or abstract
// are skipped and counted.
func (idx *Indexer) IndexPapers(ctx context.Context, inputs []*models.PaperInput) (*ImportResult, error) {
	res := &ImportResult{}
	batch := make([]*models.Paper, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.indexBatch(ctx, batch); err != nil {
			return err
		}
		for _, p := range batch {
			res.IDs = append(res.IDs, p.ID)
		}
		res.Indexed += len(batch)
		batch = batch[:0]
		return nil
	}
	for i, in := range inputs {
		p, err := paperFromInput(in)
		if err != nil {
			idx.logger.Warn("skipping paper", zap.Int("record", i+1), zap.String("title", in.Title), zap.Error(err))
			res.Skipped++
			continue
		}
		batch = append(batch, p)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	return res, flush()
}

func (idx *Indexer) indexBatch(ctx context.Context, papers []*models.Paper) error {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = p.EmbeddingText()
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(papers) {
		return fmt.Errorf("embedder returned %d vectors for %d papers", len(vectors), len(papers))
	}
	model := idx.embedder.ModelName()
	ids := make([]string, len(papers))
	for i, p := range papers {
		if err := idx.storage.UpsertPaper(ctx, p); err != nil {
			return fmt.Errorf("failed to store paper: %w", err)
		}
		if err := idx.storage.PutEmbedding(ctx, p.ID, model, vectors[i]); err != nil {
			return fmt.Errorf("failed to store embedding: %w", err)
		}
		if idx.keywordIndex != nil {
			if err := idx.keywordIndex.Index(ctx, p); err != nil {
				return fmt.Errorf("failed to index keywords: %w", err)
			}
		}
		ids[i] = p.ID
	}
	if err := idx.vectorIndex.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	idx.logger.Debug("indexed papers", zap.Int("count", len(papers)))
	return nil
}

// DeletePaper removes a paper from storage and both indices. Returns
// storage.ErrNotFound for an unknown ID.
func (idx *Indexer) DeletePaper(ctx context.Context, id string) error {
	if err := idx.storage.DeletePaper(ctx, id); err != nil {
		return err
	}
	if err := idx.vectorIndex.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	idx.logger.Debug("deleted paper", zap.String("id", id))
	return nil
}

// DeleteBySource removes every paper imported from source and returns how
// many were removed.
func (idx *Indexer) DeleteBySource(ctx context.Context, source string) (int, error) {
	ids, err := idx.storage.PaperIDsBySource(ctx, source)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if err := idx.DeletePaper(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return n, err
		}
		n++
	}
	return n, nil
}

// Rebuild refills the vector and keyword indices from storage. Papers with
// no stored embedding for the current model are embedded first. Returns the
// number of papers indexed.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	model := idx.embedder.ModelName()
	idx.vectorIndex.Reset()

	const page = 500
	n := 0
	for offset := 0; ; offset += page {
		papers, err := idx.storage.ListPapers(ctx, offset, page)
		if err != nil {
			return n, err
		}
		var missing []*models.Paper
		for _, p := range papers {
			vec, err := idx.storage.GetEmbedding(ctx, p.ID, model)
			switch {
			case errors.Is(err, storage.ErrNotFound) || (err == nil && len(vec) != idx.embedder.Dimensions()):
				missing = append(missing, p)
				continue
			case err != nil:
				return n, err
			}
			if err := idx.vectorIndex.Add(ctx, []string{p.ID}, [][]float32{vec}); err != nil {
				return n, err
			}
			if idx.keywordIndex != nil {
				if err := idx.keywordIndex.Index(ctx, p); err != nil {
					return n, err
				}
			}
			n++
		}
		for start := 0; start < len(missing); start += batchSize {
			end := min(start+batchSize, len(missing))
			if err := idx.indexBatch(ctx, missing[start:end]); err != nil {
				return n, err
			}
			n += end - start
		}
		if len(papers) < page {
			break
		}
	}
	idx.logger.Info("rebuilt indices", zap.Int("papers", n), zap.String("model", model))
	return n, nil
}

// LoadVectors loads the vector index from path, rebuilding it from storage
// when the file is missing, unreadable or out of step with the stored
// embeddings. A rebuilt index is saved back to path.
func (idx *Indexer) LoadVectors(ctx context.Context, path string) error {
	want, err := idx.storage.CountEmbeddings(ctx, idx.embedder.ModelName())
	if err != nil {
		return err
	}
	if path != "" {
		err = idx.vectorIndex.Load(path)
		switch {
		case err == nil && int64(idx.vectorIndex.Size()) == want:
			idx.logger.Debug("vector index loaded", zap.String("path", path), zap.Int("size", idx.vectorIndex.Size()))
			return nil
		case err == nil:
			idx.logger.Info("vector index out of date, rebuilding",
				zap.Int("size", idx.vectorIndex.Size()), zap.Int64("stored", want))
		case vector.IsNotExist(err):
			idx.logger.Info("vector index missing, rebuilding", zap.String("path", path))
		default:
			idx.logger.Warn("vector index unreadable, rebuilding", zap.String("path", path), zap.Error(err))
		}
	}
	if _, err := idx.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}
	return idx.vectorIndex.Save(path)
}

// SaveVectors writes the vector index to path.
func (idx *Indexer) SaveVectors(path string) error {
	return idx.vectorIndex.Save(path)
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}

func isRegular(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	return nil
}
