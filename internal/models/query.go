package models

import (
	"errors"
	"strings"
)

const (
	// DefaultLimit is the number of similar papers returned when unset.
	DefaultLimit = 3
	// MaxLimit caps SearchQuery.Limit.
	MaxLimit = 100
)

// ErrEmptyQuery is returned when a query lacks a title or an abstract.
var ErrEmptyQuery = errors.New("please enter both title and abstract")

// SearchQuery asks for the papers most similar to a title and abstract.
type SearchQuery struct {
	Title          string  `json:"title"`
	Abstract       string  `json:"abstract"`
	Limit          int     `json:"limit,omitempty"`
	KeywordEnabled bool    `json:"keyword_enabled,omitempty"`
	MinScore       float64 `json:"min_score,omitempty"`
}

// Validate trims the text fields, requires both of them and clamps Limit
// to 1..MaxLimit with DefaultLimit when unset.
func (q *SearchQuery) Validate() error {
	q.Title = strings.TrimSpace(q.Title)
	q.Abstract = strings.TrimSpace(q.Abstract)
	if q.Title == "" || q.Abstract == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.MinScore < 0 {
		q.MinScore = 0
	}
	return nil
}

// Text returns the embedding text of the query.
func (q *SearchQuery) Text() string {
	return EmbeddingText(q.Title, q.Abstract)
}

// KeywordText returns the query as free text for the keyword index.
func (q *SearchQuery) KeywordText() string {
	return strings.TrimSpace(q.Title + " " + q.Abstract)
}
