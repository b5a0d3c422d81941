package models

// SearchResult is one similar paper with its scores.
type SearchResult struct {
	Paper         *Paper  `json:"paper"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score,omitempty"`
	Rank          int     `json:"rank"`
}

// SearchResponse is the response for a search request. Results are ordered
// by descending Score.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Title     string          `json:"title"`
	Abstract  string          `json:"abstract"`
}
