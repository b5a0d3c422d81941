package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hyperjump/papersim/internal/extract"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/models"
)

// incompleteMessage asks the user to fill in what the extractor missed.
const incompleteMessage = "title or abstract not found in the document; please enter both title and abstract"

var errEmptyUpload = errors.New("empty upload")

type uploadSearchResponse struct {
	Extracted *frontmatter.Result    `json:"extracted"`
	Search    *models.SearchResponse `json:"search,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	result, err := s.extractUpload(w, r)
	if err != nil {
		s.fail(w, "extract", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleSearchUpload extracts the front matter of an uploaded paper and
// searches with it when both title and abstract were found.
func (s *Server) handleSearchUpload(w http.ResponseWriter, r *http.Request) {
	result, err := s.extractUpload(w, r)
	if err != nil {
		s.fail(w, "search upload", err)
		return
	}
	if !result.Complete() {
		s.respondJSON(w, http.StatusOK, uploadSearchResponse{Extracted: result, Message: incompleteMessage})
		return
	}
	query := &models.SearchQuery{
		Title:          *result.Title,
		Abstract:       *result.Abstract,
		Limit:          queryInt(r, "limit", 0),
		KeywordEnabled: r.URL.Query().Get("keyword") == "true",
	}
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.fail(w, "search upload", err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadSearchResponse{Extracted: result, Search: response})
}

func (s *Server) extractUpload(w http.ResponseWriter, r *http.Request) (*frontmatter.Result, error) {
	data, name, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".pdf"
	}
	return s.extractor.ExtractFile(data, ext)
}

// readUpload returns the uploaded document and its file name. It accepts a
// multipart form with a "file" field or the raw document as the body, named
// by the "filename" query parameter.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	if limit := s.config.Server.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		if len(data) == 0 {
			return nil, "", errEmptyUpload
		}
		return data, r.URL.Query().Get("filename"), nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", errBadForm, err)
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, "", fmt.Errorf("%w: missing file field", errBadForm)
		}
		if err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, "", fmt.Errorf("read upload %s: %w", part.FileName(), err)
		}
		if len(data) == 0 {
			return nil, "", errEmptyUpload
		}
		return data, part.FileName(), nil
	}
}

var errBadForm = errors.New("invalid multipart form")

func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, frontmatter.ErrUnreadableDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errEmptyUpload), errors.Is(err, errBadForm):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
