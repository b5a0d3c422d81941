// Package keyword provides BM25 keyword search over paper titles and abstracts.
package keyword

import (
	"context"

	"github.com/hyperjump/papersim/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from title matches. Use 1.0 for no boost.
	TitleBoost float64
	// PhraseBoost multiplies the score when the query appears as a phrase. Use 1.0 for no boost.
	PhraseBoost float64
	// Exclude lists paper IDs left out of the results.
	Exclude []string
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, p *models.Paper) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
