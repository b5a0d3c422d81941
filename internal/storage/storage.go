// Package storage defines the persistence interface for papers and their embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/papersim/internal/models"
)

// ErrNotFound is returned when a paper or embedding does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines paper and embedding persistence operations.
type Storage interface {
	// Paper operations
	UpsertPaper(ctx context.Context, p *models.Paper) error
	GetPaper(ctx context.Context, id string) (*models.Paper, error)
	GetPapers(ctx context.Context, ids []string) (map[string]*models.Paper, error)
	DeletePaper(ctx context.Context, id string) error
	ListPapers(ctx context.Context, offset, limit int) ([]*models.Paper, error)
	PaperIDsBySource(ctx context.Context, source string) ([]string, error)

	// Embedding operations, keyed by paper and model name
	PutEmbedding(ctx context.Context, paperID, model string, vec []float32) error
	GetEmbedding(ctx context.Context, paperID, model string) ([]float32, error)
	EachEmbedding(ctx context.Context, model string, fn func(paperID string, vec []float32) error) error

	// Stats
	CountPapers(ctx context.Context) (int64, error)
	CountEmbeddings(ctx context.Context, model string) (int64, error)

	Close() error
}
