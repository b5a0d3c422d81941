// Package search finds the stored papers most similar to a title and abstract.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/embedding"
	"github.com/hyperjump/papersim/internal/keyword"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/storage"
	"github.com/hyperjump/papersim/internal/vector"
)

// Engine runs semantic search with optional keyword fusion.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine with the given dependencies. The
// keyword index may be nil, in which case keyword fusion is skipped.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.KeywordIndex,
	cfg *config.SearchConfig,
	opts ...Option,
) *Engine {
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	e := &Engine{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// prepare applies configured defaults and validates the query.
func (e *Engine) prepare(query *models.SearchQuery) error {
	if query.Limit <= 0 && e.config.DefaultLimit > 0 {
		query.Limit = e.config.DefaultLimit
	}
	if query.MinScore == 0 {
		query.MinScore = e.config.DefaultMinScore
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if e.config.MaxLimit > 0 && query.Limit > e.config.MaxLimit {
		query.Limit = e.config.MaxLimit
	}
	return nil
}

func (e *Engine) candidates(limit int) int {
	if e.config.TopKCandidates > limit {
		return e.config.TopKCandidates
	}
	return limit
}

// weights returns the keyword and semantic weights for a query. Without
// keyword fusion the semantic score is the final score.
func (e *Engine) weights(keywordEnabled bool) (float64, float64) {
	if !keywordEnabled || e.keywordIndex == nil {
		return 0, 1
	}
	kw, sem := e.config.KeywordWeight, e.config.SemanticWeight
	if kw <= 0 && sem <= 0 {
		return 0.3, 0.7
	}
	return kw, sem
}

// Search embeds the query, collects vector candidates (and keyword
// candidates when enabled), fuses their scores and returns the top
// query.Limit papers.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := e.prepare(query); err != nil {
		return nil, err
	}
	queryVec, err := e.embedder.Embed(ctx, query.Text())
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	keywordWeight, semanticWeight := e.weights(query.KeywordEnabled)
	fused, err := e.rank(ctx, queryVec, query.KeywordText(), keywordWeight, semanticWeight, e.candidates(query.Limit))
	if err != nil {
		return nil, err
	}
	resp, err := e.respond(ctx, fused, query.Limit, query.MinScore)
	if err != nil {
		return nil, err
	}
	resp.Title, resp.Abstract = query.Title, query.Abstract
	resp.QueryTime = time.Since(startTime).Milliseconds()
	e.logger.Debug("search",
		zap.Int("limit", query.Limit),
		zap.Bool("keyword", keywordWeight > 0),
		zap.Int("results", len(resp.Results)),
		zap.Int64("ms", resp.QueryTime))
	return resp, nil
}

// Similar returns the k papers nearest to a stored paper, excluding the
// paper itself. Returns storage.ErrNotFound for an unknown ID.
func (e *Engine) Similar(ctx context.Context, paperID string, k int) (*models.SearchResponse, error) {
	startTime := time.Now()
	paper, err := e.storage.GetPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = e.config.DefaultLimit
	}
	if k <= 0 {
		k = models.DefaultLimit
	}
	if e.config.MaxLimit > 0 && k > e.config.MaxLimit {
		k = e.config.MaxLimit
	}

	vec, err := e.paperVector(ctx, paper)
	if err != nil {
		return nil, err
	}
	hits, err := e.vectorIndex.Search(ctx, vec, k, paperID)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	fused := Fuse(nil, NormalizeSemanticScores(hits), 0, 1)
	resp, err := e.respond(ctx, fused, k, 0)
	if err != nil {
		return nil, err
	}
	resp.Title, resp.Abstract = paper.Title, paper.Abstract
	resp.QueryTime = time.Since(startTime).Milliseconds()
	return resp, nil
}

// paperVector returns the indexed vector of a paper, falling back to the
// stored embedding and then to embedding its text.
func (e *Engine) paperVector(ctx context.Context, p *models.Paper) ([]float32, error) {
	if vec, ok := e.vectorIndex.Get(p.ID); ok {
		return vec, nil
	}
	vec, err := e.storage.GetEmbedding(ctx, p.ID, e.embedder.ModelName())
	if err == nil {
		return vec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	vec, err = e.embedder.Embed(ctx, p.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return vec, nil
}

// rank runs the vector and keyword searches concurrently and fuses them.
func (e *Engine) rank(ctx context.Context, queryVec []float32, text string, keywordWeight, semanticWeight float64, k int) ([]*FusedResult, error) {
	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if keywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, text, k, &keyword.SearchOptions{TitleBoost: e.config.KeywordTitleBoost})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		results, err := e.vectorIndex.Search(ctx, queryVec, k)
		if err != nil {
			errChan <- fmt.Errorf("vector search failed: %w", err)
			return
		}
		semanticResults = results
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	semantic := NormalizeSemanticScores(semanticResults)
	// Keyword-only candidates still get their true semantic score.
	for _, r := range keywordResults {
		if _, ok := semantic[r.ID]; ok {
			continue
		}
		if vec, ok := e.vectorIndex.Get(r.ID); ok {
			semantic[r.ID] = vector.InnerProduct(queryVec, vec)
		}
	}
	return Fuse(NormalizeKeywordScores(keywordResults), semantic, keywordWeight, semanticWeight), nil
}

// respond filters by minScore, hydrates papers from storage and ranks the
// first limit of them. Index entries without a stored paper are skipped.
func (e *Engine) respond(ctx context.Context, fused []*FusedResult, limit int, minScore float64) (*models.SearchResponse, error) {
	if minScore > 0 {
		filtered := fused[:0]
		for _, r := range fused {
			if r.Score >= minScore {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}

	ids := make([]string, len(fused))
	for i, r := range fused {
		ids[i] = r.PaperID
	}
	papers, err := e.storage.GetPapers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load papers: %w", err)
	}

	response := &models.SearchResponse{Results: make([]*models.SearchResult, 0, limit)}
	for _, r := range fused {
		paper, ok := papers[r.PaperID]
		if !ok {
			e.logger.Warn("indexed paper missing from storage", zap.String("id", r.PaperID))
			continue
		}
		response.Total++
		if len(response.Results) == limit {
			continue
		}
		response.Results = append(response.Results, &models.SearchResult{
			Paper:         paper,
			Score:         r.Score,
			SemanticScore: r.SemanticScore,
			KeywordScore:  r.KeywordScore,
			Rank:          len(response.Results) + 1,
		})
	}
	return response, nil
}

// VectorIndexSize returns the number of vectors in the index.
func (e *Engine) VectorIndexSize() int {
	return e.vectorIndex.Size()
}

// ModelName returns the embedding model the engine searches with.
func (e *Engine) ModelName() string {
	return e.embedder.ModelName()
}
