// Package cli formats papersim results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/models"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
}

// WriteSearchResults writes response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.Score, r.Paper.ID, titleWithYear(r.Paper))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d similar papers in %dms\n\n", response.Total, response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s\n", r.Rank, titleWithYear(r.Paper))
		if r.KeywordScore > 0 {
			fmt.Fprintf(w, "Score: %.4f (Semantic: %.4f, Keyword: %.4f)\n", r.Score, r.SemanticScore, r.KeywordScore)
		} else {
			fmt.Fprintf(w, "Score: %.4f\n", r.Score)
		}
		if r.Paper.URL != "" {
			fmt.Fprintf(w, "URL: %s\n", r.Paper.URL)
		}
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(r.Paper.Abstract, 60))
	}
}

// WriteExtraction writes extracted front matter. Missing fields print as
// "(not found)" in text form and null in JSON.
func WriteExtraction(w io.Writer, result *frontmatter.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	field := func(v *string) string {
		if v == nil {
			return "(not found)"
		}
		return *v
	}
	if format == OutputCompact {
		fmt.Fprintf(w, "%s\t%s\n", field(result.Title), field(result.DOI))
		return nil
	}
	fmt.Fprintf(w, "Title:    %s\n", field(result.Title))
	fmt.Fprintf(w, "DOI:      %s\n", field(result.DOI))
	fmt.Fprintf(w, "Abstract: %s\n", field(result.Abstract))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func titleWithYear(p *models.Paper) string {
	if p.Year > 0 {
		return fmt.Sprintf("%s (%d)", p.Title, p.Year)
	}
	return p.Title
}

// Truncate truncates s to maxLen bytes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
