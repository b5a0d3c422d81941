package search

import (
	"sort"

	"github.com/hyperjump/papersim/internal/keyword"
	"github.com/hyperjump/papersim/internal/vector"
)

// FusedResult holds a paper ID and its fused keyword/semantic scores.
type FusedResult struct {
	PaperID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores returns semantic scores keyed by paper ID. Scores
// are cosine similarities and are kept as-is.
func NormalizeSemanticScores(results []*vector.VectorResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	for _, r := range results {
		normalized[r.ID] = r.Score
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns
// results sorted by score descending, then by paper ID.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult, len(keywordScores)+len(semanticScores))
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{PaperID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if result, ok := scoreMap[id]; ok {
			result.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{PaperID: id, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = keywordWeight*result.KeywordScore + semanticWeight*result.SemanticScore
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PaperID < results[j].PaperID
	})
	return results
}
