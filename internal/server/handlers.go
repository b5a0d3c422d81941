package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/indexer"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.Int("limit", query.Limit), zap.Bool("keyword", query.KeywordEnabled))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIndexPaper(w http.ResponseWriter, r *http.Request) {
	var input models.PaperInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	paper, err := s.indexer.IndexPaper(r.Context(), &input)
	if err != nil {
		s.fail(w, "index paper", err)
		return
	}
	s.changed()
	s.respondJSON(w, http.StatusCreated, paper)
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	paper, err := s.storage.GetPaper(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get paper", err)
		return
	}
	s.respondJSON(w, http.StatusOK, paper)
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	papers, err := s.storage.ListPapers(r.Context(), max(offset, 0), limit)
	if err != nil {
		s.fail(w, "list papers", err)
		return
	}
	if papers == nil {
		papers = []*models.Paper{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"papers": papers, "offset": offset, "limit": limit})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	response, err := s.engine.Similar(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit", 0))
	if err != nil {
		s.fail(w, "similar", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.indexer.DeletePaper(r.Context(), id); err != nil {
		s.fail(w, "delete paper", err)
		return
	}
	s.changed()
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var dirs []string
	if s.watch != nil {
		dirs = s.watch.Directories()
	}
	st, err := CollectStatus(r.Context(), s.storage, s.engine, s.config, dirs)
	if err != nil {
		s.fail(w, "status", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

// fail maps domain errors to status codes and logs unexpected ones.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, indexer.ErrInvalidPaper):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	}
	return uploadStatus(err)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
