package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/papersim/internal/cli"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/report"
)

type searchOptions struct {
	title     string
	abstract  string
	pdf       string
	limit     int
	minScore  float64
	keyword   bool
	output    string
	report    string
	serverURL string
}

func (a *app) searchCmd() *cobra.Command {
	o := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find papers similar to a title and abstract",
		Long: `Find the papers most similar to a title and abstract.

Give both --title and --abstract, or --pdf to extract them from a paper.
With --pdf, --title and --abstract fill in or replace the extracted fields.

Examples:
  papersim search --title "Attention is all you need" --abstract "The dominant sequence transduction models..."
  papersim search --pdf paper.pdf --limit 10 --keyword
  papersim search --pdf paper.pdf --output json
  papersim search --pdf scan.pdf --abstract "We study..."
  papersim search --pdf paper.pdf --report similar.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.title, "title", "", "paper title")
	f.StringVar(&o.abstract, "abstract", "", "paper abstract")
	f.StringVar(&o.pdf, "pdf", "", "extract title and abstract from this PDF")
	f.IntVar(&o.limit, "limit", 0, "number of results (default from config)")
	f.Float64Var(&o.minScore, "min-score", 0, "drop results scoring below this")
	f.BoolVar(&o.keyword, "keyword", false, "blend keyword matching into the ranking")
	f.StringVar(&o.output, "output", "text", "output format: text, compact or json")
	f.StringVar(&o.report, "report", "", "also write the results as a PDF report to this file")
	f.StringVar(&o.serverURL, "server", "", "search through a running server at this URL instead of opening the index")
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, o *searchOptions) error {
	format, err := cli.ParseOutputFormat(o.output)
	if err != nil {
		return err
	}
	query, err := buildQuery(o)
	if err != nil {
		return err
	}
	if err := query.Validate(); err != nil {
		return err
	}

	var response *models.SearchResponse
	if o.serverURL != "" {
		response, err = searchViaHTTP(cmd.Context(), o.serverURL, query)
	} else {
		response, err = a.searchLocal(cmd.Context(), query)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if err := cli.WriteSearchResults(cmd.OutOrStdout(), response, format); err != nil {
		return err
	}
	if o.report != "" {
		if err := report.WriteFile(o.report, response); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", o.report)
	}
	return nil
}

// buildQuery fills the query from the flags. With --pdf the extracted title
// and abstract are used for whichever of --title and --abstract is blank.
func buildQuery(o *searchOptions) (*models.SearchQuery, error) {
	q := &models.SearchQuery{
		Title:          o.title,
		Abstract:       o.abstract,
		Limit:          o.limit,
		MinScore:       o.minScore,
		KeywordEnabled: o.keyword,
	}
	if o.pdf == "" {
		return q, nil
	}
	result, err := extractFile(o.pdf)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.Title) == "" && result.Title != nil {
		q.Title = *result.Title
	}
	if strings.TrimSpace(q.Abstract) == "" && result.Abstract != nil {
		q.Abstract = *result.Abstract
	}
	var missing []string
	if strings.TrimSpace(q.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(q.Abstract) == "" {
		missing = append(missing, "abstract")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: %s %w", o.pdf, strings.Join(missing, " and "), errIncomplete)
	}
	return q, nil
}

var errIncomplete = errors.New("not found in the file; pass --title or --abstract to supply it")

func extractFile(path string) (*frontmatter.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = ".pdf"
	}
	return frontmatter.New().ExtractFile(data, ext)
}

func (a *app) searchLocal(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, logger, err := a.setup(false)
	if err != nil {
		return nil, err
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Engine.Search(ctx, query)
}

func searchViaHTTP(ctx context.Context, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}
