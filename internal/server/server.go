// Package server provides the papersim HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/papersim/internal/config"
	"github.com/hyperjump/papersim/internal/frontmatter"
	"github.com/hyperjump/papersim/internal/indexer"
	"github.com/hyperjump/papersim/internal/search"
	"github.com/hyperjump/papersim/internal/storage"
)

// WatchService reports the inbox directories being watched.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the papersim API.
type Server struct {
	engine    *search.Engine
	indexer   *indexer.Indexer
	extractor *frontmatter.Extractor
	storage   storage.Storage
	config    *config.Config
	watch     WatchService
	onChange  func()
	logger    *zap.Logger
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithWatch reports the inbox watcher in the status endpoint.
func WithWatch(w WatchService) Option {
	return func(s *Server) { s.watch = w }
}

// WithChangeHook sets a function run after a paper is added or deleted.
func WithChangeHook(fn func()) Option {
	return func(s *Server) { s.onChange = fn }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	extractor *frontmatter.Extractor,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = frontmatter.New(frontmatter.WithLogger(logger))
	}
	s := &Server{
		engine:    engine,
		indexer:   idx,
		extractor: extractor,
		storage:   storage,
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if d := s.config.Server.RequestTimeout; d > 0 {
		r.Use(middleware.Timeout(d))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		if s.config.Server.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.config.Server.RateLimit), max(s.config.Server.RateBurst, 1))))
		}
		r.Post("/extract", s.handleExtract)
		r.Post("/search", s.handleSearch)
		r.Post("/search/upload", s.handleSearchUpload)
		r.Get("/papers", s.handleListPapers)
		r.Post("/papers", s.handleIndexPaper)
		r.Get("/papers/{id}", s.handleGetPaper)
		r.Get("/papers/{id}/similar", s.handleSimilar)
		r.Delete("/papers/{id}", s.handleDeletePaper)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// rateLimit rejects requests beyond the limiter's token bucket with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
