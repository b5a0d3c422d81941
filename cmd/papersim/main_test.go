package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/pdftest"
	"github.com/hyperjump/papersim/internal/server"
	"github.com/hyperjump/papersim/internal/storage"
)

const testConfig = `
storage:
  database_path: "./data/papers.db"
  bleve_index_path: "./data/bleve"
  vector_index_path: "./data/vectors.bin"
embedding:
  provider: mock
  dimensions: 256
`

const testCorpus = `{"title": "BERT pre-training of deep bidirectional transformers", "abstract": "language representation with transformers", "url": "https://example.org/bert", "year": 2018}
{"title": "Protein structure prediction", "abstract": "folding amino acid chains", "year": 2021}
{"title": "Graph neural networks", "abstract": "message passing over graph structured data", "year": 2019}
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("papersim %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, filepath.Join(dir, "config.yaml"), "debug: true\nserver:\n  port: 9000\n")
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug || cfg.Server.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_missingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path || cfg.Server.Port != 8080 {
		t.Errorf("resolved = %s, port = %d", resolved, cfg.Server.Port)
	}
}

func TestCLI_importSearchDelete(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	cfgPath := writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)
	corpusPath := writeFile(t, filepath.Join(dir, "corpus.jsonl"), testCorpus)

	out := mustRun(t, "--config", cfgPath, "import", corpusPath)
	if !strings.Contains(out, "3 indexed") {
		t.Errorf("import output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "vectors.bin")); err != nil {
		t.Errorf("vector index not saved: %v", err)
	}

	out = mustRun(t, "--config", cfgPath, "search",
		"--title", "Protein structure prediction",
		"--abstract", "folding amino acid chains",
		"--limit", "1", "--output", "compact")
	if !strings.Contains(out, "Protein structure prediction (2021)") || strings.Count(out, "\n") != 1 {
		t.Errorf("search output = %q", out)
	}

	reportPath := filepath.Join(dir, "out", "report.pdf")
	out = mustRun(t, "--config", cfgPath, "search",
		"--title", "BERT pre-training of deep bidirectional transformers",
		"--abstract", "language representation with transformers",
		"--keyword", "--output", "json", "--report", reportPath)
	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(out[:strings.LastIndex(out, "}")+1]), &resp); err != nil {
		t.Fatalf("search json: %v\n%s", err, out)
	}
	if len(resp.Results) == 0 || resp.Results[0].Paper.URL != "https://example.org/bert" {
		t.Errorf("results = %+v", resp.Results)
	}
	if _, err := os.Stat(reportPath); err != nil {
		t.Errorf("report not written: %v", err)
	}

	bertID := resp.Results[0].Paper.ID
	out = mustRun(t, "--config", cfgPath, "similar", bertID, "--limit", "2", "--output", "compact")
	if strings.Contains(out, "\t"+bertID+"\t") || strings.Count(out, "\n") != 2 {
		t.Errorf("similar output = %q", out)
	}

	mustRun(t, "--config", cfgPath, "delete", bertID)
	if _, err := run(t, "--config", cfgPath, "delete", bertID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}

	out = mustRun(t, "--config", cfgPath, "status", "--output", "json")
	var st server.Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("status json: %v\n%s", err, out)
	}
	if st.Papers != 2 || st.VectorIndexSize != 2 || st.Model != "mock" {
		t.Errorf("status = %+v", st)
	}

	if err := os.Remove(filepath.Join(dir, "data", "vectors.bin")); err != nil {
		t.Fatal(err)
	}
	out = mustRun(t, "--config", cfgPath, "rebuild")
	if !strings.Contains(out, "rebuilt indices with 2 papers") {
		t.Errorf("rebuild output = %q", out)
	}
}

func TestCLI_searchErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	cfgPath := writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)

	if _, err := run(t, "--config", cfgPath, "search", "--title", "only a title"); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
	if _, err := run(t, "--config", cfgPath, "search", "--title", "t", "--abstract", "a", "--output", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
	if _, err := run(t, "--config", cfgPath, "search", "--pdf", "missing.pdf", "--title", "t"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}

	data, err := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{pdftest.Lines(10, "Just a title", "and some text")}})
	if err != nil {
		t.Fatal(err)
	}
	pdfPath := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", cfgPath, "search", "--pdf", pdfPath); !errors.Is(err, errIncomplete) {
		t.Errorf("err = %v, want errIncomplete", err)
	}
}

func TestCLI_searchPDFCompletedByFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	cfgPath := writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)
	mustRun(t, "--config", cfgPath, "import", writeFile(t, filepath.Join(dir, "corpus.jsonl"), testCorpus))

	data, err := pdftest.Build(pdftest.Doc{
		Title: "Protein structure prediction",
		Pages: []pdftest.Page{pdftest.Lines(10, "Protein structure prediction", "Some Author")},
	})
	if err != nil {
		t.Fatal(err)
	}
	pdfPath := filepath.Join(dir, "no-abstract.pdf")
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		args      []string
		wantTitle string
	}{
		{"abstract from flag", []string{"--abstract", "folding amino acid chains"}, "Protein structure prediction"},
		{"title overridden", []string{"--title", "Graph neural networks", "--abstract", "message passing"}, "Graph neural networks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfgPath, "search", "--pdf", pdfPath, "--output", "json"}, tt.args...)
			out := mustRun(t, args...)
			var resp models.SearchResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("search json: %v\n%s", err, out)
			}
			if resp.Title != tt.wantTitle || resp.Abstract != tt.args[len(tt.args)-1] {
				t.Errorf("query = %q / %q", resp.Title, resp.Abstract)
			}
			if len(resp.Results) == 0 {
				t.Error("no results")
			}
		})
	}

	if _, err := run(t, "--config", cfgPath, "search", "--pdf", pdfPath); !errors.Is(err, errIncomplete) {
		t.Errorf("err = %v, want errIncomplete", err)
	}
}

func TestCLI_extract(t *testing.T) {
	dir := t.TempDir()
	data, err := pdftest.Build(pdftest.Doc{
		Title: "Deep Residual Learning",
		Pages: []pdftest.Page{pdftest.Lines(10,
			"doi: 10.1109/CVPR.2016.90",
			"",
			"Abstract",
			"Deeper neural networks are more difficult to train.",
			"",
			"1 Introduction",
		)},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "resnet.pdf")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	out := mustRun(t, "extract", path)
	for _, want := range []string{"Title:    Deep Residual Learning", "DOI:      10.1109/CVPR.2016.90", "Abstract: Deeper neural networks"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	out = mustRun(t, "extract", "--text", path)
	if !strings.Contains(out, "Deeper neural networks are more difficult to train.") {
		t.Errorf("text output = %q", out)
	}
	if _, err := run(t, "extract", filepath.Join(dir, "slides.pptx")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCLI_version(t *testing.T) {
	out := mustRun(t, "version")
	if out != "papersim version dev\n" {
		t.Errorf("version = %q", out)
	}
}

func TestSearchViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var q models.SearchQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Abstract == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"please enter both title and abstract"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(models.SearchResponse{Title: q.Title, Total: 1, Results: []*models.SearchResult{
			{Rank: 1, Score: 0.5, Paper: &models.Paper{ID: "p1", Title: "Paper"}},
		}})
	}))
	defer ts.Close()

	resp, err := searchViaHTTP(context.Background(), ts.URL+"/", &models.SearchQuery{Title: "t", Abstract: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Title != "t" || len(resp.Results) != 1 || resp.Results[0].Paper.ID != "p1" {
		t.Errorf("response = %+v", resp)
	}

	_, err = searchViaHTTP(context.Background(), ts.URL, &models.SearchQuery{Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v", err)
	}
}

func TestStatusViaHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(server.Status{Papers: 7, Model: "mock"})
	}))
	defer ts.Close()
	st, err := statusViaHTTP(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := writeStatus(&buf, st, "text"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Papers:        7") {
		t.Errorf("status text = %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestVectorSaver(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	cfgPath := writeFile(t, filepath.Join(dir, "config.yaml"), testConfig)
	cfg, _, err := loadConfig(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	components, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	path := filepath.Join(dir, "saved", "vectors.bin")
	saver := newVectorSaver(components.Indexer, path, 20*time.Millisecond, zap.NewNop())
	saver.Changed()
	saver.Changed()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("vector index was not saved")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := saver.Flush(); err != nil {
		t.Fatal(err)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup, mirroring testing.T.Chdir from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if filepath.IsAbs(dir) {
		t.Setenv("PWD", dir)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("chdir: restoring working directory: " + err.Error())
		}
	})
}
