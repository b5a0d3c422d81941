// Package models defines papers, search queries and search results.
package models

import (
	"strings"
	"time"
)

// SEP joins title and abstract into the text that is embedded. SPECTER-style
// models are trained on this exact separator.
const SEP = "[SEP]"

// Paper is a corpus entry.
type Paper struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Abstract  string    `json:"abstract" db:"abstract"`
	URL       string    `json:"url,omitempty" db:"url"`
	Year      int       `json:"year,omitempty" db:"year"`
	Source    string    `json:"source,omitempty" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EmbeddingText returns the text the paper is embedded as.
func (p *Paper) EmbeddingText() string {
	return EmbeddingText(p.Title, p.Abstract)
}

// KeywordText returns title and abstract for full-text indexing.
func (p *Paper) KeywordText() string {
	return strings.TrimSpace(p.Title + "\n" + p.Abstract)
}

// EmbeddingText joins a trimmed title and abstract with SEP.
func EmbeddingText(title, abstract string) string {
	return strings.TrimSpace(title) + SEP + strings.TrimSpace(abstract)
}

// PaperInput is the input for creating or updating a paper. An empty ID is
// derived from URL, or from title and year.
type PaperInput struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url,omitempty"`
	Year     int    `json:"year,omitempty"`
	Source   string `json:"source,omitempty"`
}
