package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/embedding"
	"github.com/hyperjump/papersim/internal/extract"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/indexer"
	"github.com/hyperjump/papersim/internal/keyword"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/pdftest"
	"github.com/hyperjump/papersim/internal/search"
	"github.com/hyperjump/papersim/internal/storage"
	"github.com/hyperjump/papersim/internal/vector"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return m.dirs
}

func newTestServer(t *testing.T, mutate func(*config.Config), opts ...Option) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage:   config.StorageConfig{DatabasePath: filepath.Join(dir, "papers.db")},
		Embedding: config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 512},
	}
	config.ApplyDefaults(cfg)
	cfg.Storage.BleveIndexPath = ""
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "vectors.bin")
	cfg.Server.RateLimit = -1
	if mutate != nil {
		mutate(cfg)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	emb := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	vecIndex, err := vector.NewMemoryIndex(emb.ModelName(), emb.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })

	idx := indexer.NewIndexer(store, emb, vecIndex, kwIndex)
	engine := search.NewEngine(store, emb, vecIndex, kwIndex, &cfg.Search)
	srv := NewServer(engine, idx, nil, store, cfg, nil, opts...)
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func indexPapers(t *testing.T, h http.Handler) {
	t.Helper()
	for _, in := range []models.PaperInput{
		{ID: "bert", Title: "BERT pre-training of deep bidirectional transformers", Abstract: "language representation with transformers", Year: 2018},
		{ID: "protein", Title: "Protein structure prediction", Abstract: "folding amino acid chains", Year: 2021},
	} {
		if w := do(t, h, http.MethodPost, "/api/v1/papers", in); w.Code != http.StatusCreated {
			t.Fatalf("index %s: status %d: %s", in.ID, w.Code, w.Body.String())
		}
	}
}

func resnetPDF(t *testing.T) []byte {
	t.Helper()
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
	return data
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleHealth(t *testing.T) {
	_, h := newTestServer(t, nil)
	w := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	_, h := newTestServer(t, nil)
	indexPapers(t, h)

	w := do(t, h, http.MethodPost, "/api/v1/search", models.SearchQuery{
		Title:    "BERT pre-training of deep bidirectional transformers",
		Abstract: "language representation with transformers",
		Limit:    1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.SearchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Paper.ID != "bert" {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("rank = %d", resp.Results[0].Rank)
	}
}

func TestHandleSearch_badRequests(t *testing.T) {
	_, h := newTestServer(t, nil)
	tests := []struct {
		name string
		body any
	}{
		{"missing abstract", models.SearchQuery{Title: "only a title"}},
		{"blank fields", models.SearchQuery{Title: "  ", Abstract: "\n"}},
		{"not json", "not an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/search", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if e := decode[errorResponse](t, w); e.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandlePapers(t *testing.T) {
	changes := 0
	_, h := newTestServer(t, nil, WithChangeHook(func() { changes++ }))
	indexPapers(t, h)
	if changes != 2 {
		t.Errorf("change hook ran %d times, want 2", changes)
	}

	w := do(t, h, http.MethodGet, "/api/v1/papers/protein", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	if p := decode[models.Paper](t, w); p.Year != 2021 {
		t.Errorf("paper = %+v", p)
	}

	w = do(t, h, http.MethodGet, "/api/v1/papers/bert/similar?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("similar: status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.SearchResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Paper.ID != "protein" {
		t.Errorf("similar = %+v", resp.Results)
	}

	if w := do(t, h, http.MethodDelete, "/api/v1/papers/protein", nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if changes != 3 {
		t.Errorf("change hook ran %d times, want 3", changes)
	}
	for _, target := range []string{"/api/v1/papers/protein", "/api/v1/papers/protein/similar"} {
		if w := do(t, h, http.MethodGet, target, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s after delete: status = %d", target, w.Code)
		}
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/papers/protein", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/v1/papers", nil)
	list := decode[struct {
		Papers []*models.Paper `json:"papers"`
	}](t, w)
	if len(list.Papers) != 1 || list.Papers[0].ID != "bert" {
		t.Errorf("list = %+v", list.Papers)
	}
}

func TestHandleIndexPaper_invalid(t *testing.T) {
	_, h := newTestServer(t, nil)
	w := do(t, h, http.MethodPost, "/api/v1/papers", models.PaperInput{Title: "no abstract"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleExtract(t *testing.T) {
	_, h := newTestServer(t, nil)
	body, contentType := multipartBody(t, "file", "resnet.pdf", resnetPDF(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got struct {
		Title    *string `json:"title"`
		Abstract *string `json:"abstract"`
		DOI      *string `json:"doi"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Title == nil || *got.Title != "Deep Residual Learning" {
		t.Errorf("title = %v", got.Title)
	}
	if got.Abstract == nil || !strings.HasPrefix(*got.Abstract, "Deeper neural networks") {
		t.Errorf("abstract = %v", got.Abstract)
	}
	if got.DOI == nil || *got.DOI != "10.1109/CVPR.2016.90" {
		t.Errorf("doi = %v", got.DOI)
	}
}

func TestHandleExtract_rawBody(t *testing.T) {
	_, h := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", bytes.NewReader(resnetPDF(t)))
	req.Header.Set("Content-Type", "application/pdf")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleExtract_errors(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) { cfg.Server.MaxUploadBytes = 1024 })
	tests := []struct {
		name   string
		target string
		data   []byte
		want   int
	}{
		{"not a pdf", "/api/v1/extract", []byte("plain text, not a PDF"), http.StatusUnprocessableEntity},
		{"unsupported", "/api/v1/extract?filename=slides.pptx", []byte("PK"), http.StatusUnsupportedMediaType},
		{"empty", "/api/v1/extract", nil, http.StatusBadRequest},
		{"too large", "/api/v1/extract", bytes.Repeat([]byte("x"), 4096), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(tt.data))
			req.Header.Set("Content-Type", "application/octet-stream")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandleExtract_multipartTooLarge(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) { cfg.Server.MaxUploadBytes = 1024 })
	body, contentType := multipartBody(t, "file", "big.pdf", bytes.Repeat([]byte("x"), 8192))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413: %s", w.Code, w.Body.String())
	}
}

func TestUploadStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"body limit", fmt.Errorf("read upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"limit text only", errors.New("http: request body too large"), http.StatusInternalServerError},
		{"unsupported", fmt.Errorf("x.pptx: %w", extract.ErrUnsupported), http.StatusUnsupportedMediaType},
		{"unreadable", frontmatter.ErrUnreadableDocument, http.StatusUnprocessableEntity},
		{"bad form", fmt.Errorf("%w: boundary", errBadForm), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uploadStatus(tt.err); got != tt.want {
				t.Errorf("uploadStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestHandleExtract_missingFileField(t *testing.T) {
	_, h := newTestServer(t, nil)
	body, contentType := multipartBody(t, "document", "resnet.pdf", resnetPDF(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSearchUpload(t *testing.T) {
	_, h := newTestServer(t, nil)
	indexPapers(t, h)

	body, contentType := multipartBody(t, "file", "resnet.pdf", resnetPDF(t))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/upload?limit=2", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got := decode[uploadSearchResponse](t, w)
	if !got.Extracted.Complete() || got.Search == nil {
		t.Fatalf("response = %+v", got)
	}
	if len(got.Search.Results) != 2 {
		t.Errorf("results = %d, want 2", len(got.Search.Results))
	}
}

func TestHandleSearchUpload_incomplete(t *testing.T) {
	_, h := newTestServer(t, nil)
	data, err := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{pdftest.Lines(10, "Just a title", "and some text")}})
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/upload", bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got := decode[uploadSearchResponse](t, w)
	if got.Search != nil || got.Message == "" || got.Extracted.Complete() {
		t.Errorf("response = %+v", got)
	}
}

func TestHandleStatus(t *testing.T) {
	_, h := newTestServer(t, nil, WithWatch(&mockWatchService{dirs: []string{"/inbox"}}))
	indexPapers(t, h)

	w := do(t, h, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	st := decode[Status](t, w)
	if st.Papers != 2 || st.Embeddings != 2 || st.VectorIndexSize != 2 {
		t.Errorf("counts = %+v", st)
	}
	if st.Model != "mock" || st.Config.Dimensions != 512 {
		t.Errorf("model = %s config = %+v", st.Model, st.Config)
	}
	if st.DiskUsageBytes <= 0 {
		t.Errorf("disk usage = %d", st.DiskUsageBytes)
	}
	if len(st.WatchDirectories) != 1 || st.WatchDirectories[0] != "/inbox" {
		t.Errorf("watch directories = %v", st.WatchDirectories)
	}
}

func TestRateLimit(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = 0.001
		cfg.Server.RateBurst = 2
	})
	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/api/v1/status", nil).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
	if w := do(t, h, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health is not rate limited, got %d", w.Code)
	}
}

func TestServerStop_notStarted(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}
