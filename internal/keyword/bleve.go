package keyword

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/papersim/internal/models"
)

const paperType = "paper"

// paperDoc is the indexed form of a paper.
type paperDoc struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Source   string `json:"source"`
}

// Type lets bleve pick the paper mapping.
func (paperDoc) Type() string { return paperType }

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func paperMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases without stemming so exact terms like
	// "bert" do not collide with unrelated stems.
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("abstract", text)
	source := bleve.NewKeywordFieldMapping()
	source.IncludeInAll = false
	docMapping.AddFieldMappingsAt("source", source)

	im.AddDocumentMapping(paperType, docMapping)
	im.DefaultType = paperType
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path
// creates an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(paperMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	index, err := bleve.New(path, paperMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the paper's title and abstract.
func (b *BleveIndex) Index(ctx context.Context, p *models.Paper) error {
	return b.index.Index(p.ID, paperDoc{Title: p.Title, Abstract: p.Abstract, Source: p.Source})
}

// Search runs title and abstract match queries and merges them with additive
// scoring: score = title*TitleBoost + abstract, scaled by squared term
// coverage and by PhraseBoost when the query appears as a phrase.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	titleBoost, phraseBoost := 1.0, 1.0
	skip := map[string]bool{}
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		for _, id := range opts.Exclude {
			skip[id] = true
		}
	}

	reqSize := limit*2 + len(skip)
	if reqSize < 50 {
		reqSize = 50
	}

	titleScores, err := b.fieldScores(ctx, query, "title", reqSize)
	if err != nil {
		return nil, err
	}
	abstractScores, err := b.fieldScores(ctx, query, "abstract", reqSize)
	if err != nil {
		return nil, err
	}

	var coverage map[string]int
	if len(terms) > 1 {
		coverage = b.termCoverage(ctx, terms, candidateIDs(titleScores, abstractScores))
	}
	var phrases map[string]bool
	if phraseBoost > 1 && len(terms) > 1 {
		phrases = b.phraseMatches(ctx, query, reqSize)
	}

	scores := make(map[string]float64, len(titleScores)+len(abstractScores))
	for id, s := range titleScores {
		scores[id] += s * titleBoost
	}
	for id, s := range abstractScores {
		scores[id] += s
	}

	out := make([]*KeywordResult, 0, len(scores))
	for id, score := range scores {
		if skip[id] {
			continue
		}
		if len(terms) > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			score *= c * c
		}
		if phrases[id] {
			score *= phraseBoost
		}
		out = append(out, &KeywordResult{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *BleveIndex) fieldScores(ctx context.Context, query, field string, size int) (map[string]float64, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField(field)
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve %s search failed: %w", field, err)
	}
	scores := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

// termCoverage counts how many distinct query terms each candidate matches.
// Each term query is restricted to the candidates so common terms cannot
// crowd a candidate out of the hit window.
func (b *BleveIndex) termCoverage(ctx context.Context, terms, candidates []string) map[string]int {
	coverage := make(map[string]int, len(candidates))
	if len(candidates) == 0 {
		return coverage
	}
	for _, term := range terms {
		title := bleve.NewMatchQuery(term)
		title.SetField("title")
		abstract := bleve.NewMatchQuery(term)
		abstract.SetField("abstract")
		q := bleve.NewConjunctionQuery(
			bleve.NewDocIDQuery(candidates),
			bleve.NewDisjunctionQuery(title, abstract),
		)
		req := bleve.NewSearchRequest(q)
		req.Size = len(candidates)
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			continue
		}
		for _, hit := range res.Hits {
			coverage[hit.ID]++
		}
	}
	return coverage
}

// candidateIDs returns the sorted union of the IDs in the score maps.
func candidateIDs(scores ...map[string]float64) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range scores {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func (b *BleveIndex) phraseMatches(ctx context.Context, query string, size int) map[string]bool {
	matches := make(map[string]bool)
	var qs []blevequery.Query
	for _, field := range []string{"title", "abstract"} {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField(field)
		qs = append(qs, pq)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(qs...))
	req.Size = size
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return matches
	}
	for _, hit := range res.Hits {
		matches[hit.ID] = true
	}
	return matches
}

// tokenizeQuery splits query into distinct lowercase terms.
func tokenizeQuery(query string) []string {
	query = strings.ReplaceAll(query, models.SEP, " ")
	seen := make(map[string]bool)
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// Delete removes a paper from the index. Unknown IDs are ignored.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed papers.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
