// Package frontmatter recovers a paper's title, abstract and DOI from an
// uploaded document.
//
// Title resolution tries, in order: the document's Title metadata, the
// largest-font span on page 1, and the first non-blank line of text. The
// abstract is the run of lines after a line starting with "abstract" up to
// the first blank line. Absence of either is reported as a nil field, never
// as an error.
package frontmatter

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/extract"
	"github.com/hyperjump/papersim/internal/pdfdoc"
)

// ErrUnreadableDocument is returned when the input cannot be opened as a
// document at all.
var ErrUnreadableDocument = errors.New("unreadable document")

// Result holds the recovered front matter. Each field is nil or a non-empty,
// trimmed string.
type Result struct {
	Title    *string `json:"title"`
	Abstract *string `json:"abstract"`
	DOI      *string `json:"doi"`
}

// Complete reports whether both title and abstract were found.
func (r *Result) Complete() bool {
	return r != nil && r.Title != nil && r.Abstract != nil
}

// Extractor extracts front matter. It holds no per-call state and is safe
// for concurrent use.
type Extractor struct {
	open   pdfdoc.OpenFunc
	text   *extract.Extractor
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOpener replaces the PDF backend.
func WithOpener(open pdfdoc.OpenFunc) Option {
	return func(e *Extractor) { e.open = open }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New returns an Extractor backed by pdfdoc.OpenDocument.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		open:   pdfdoc.OpenDocument,
		text:   extract.NewExtractor(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses data as a PDF and returns its front matter. An error is
// returned only when the document cannot be opened; it matches
// ErrUnreadableDocument.
func (e *Extractor) Extract(data []byte) (*Result, error) {
	doc, err := e.open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	defer doc.Close()
	return e.ExtractDocument(doc), nil
}

// ExtractFile dispatches on ext (with leading dot). PDFs go through Extract;
// DOCX, ODT, RTF and plain text are converted to text and treated as a
// single page without layout information. Unsupported extensions return
// extract.ErrUnsupported.
func (e *Extractor) ExtractFile(data []byte, ext string) (*Result, error) {
	ext = strings.ToLower(ext)
	if ext == ".pdf" {
		return e.Extract(data)
	}
	if !extract.Supported(ext) {
		return nil, fmt.Errorf("%w: %q", extract.ErrUnsupported, ext)
	}
	text, err := e.text.ExtractBytes(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	doc := pdfdoc.FromPlainText(text)
	defer doc.Close()
	return e.ExtractDocument(doc), nil
}

// ExtractDocument runs the title, abstract and DOI heuristics over an
// already opened document. The caller keeps ownership of doc.
func (e *Extractor) ExtractDocument(doc pdfdoc.Document) *Result {
	pages := &pageSource{doc: doc, logger: e.logger}
	res := &Result{
		Title:    optional(e.title(doc, pages)),
		Abstract: optional(findAbstract(pages)),
		DOI:      optional(findDOI(pages)),
	}
	e.logger.Debug("front matter extracted",
		zap.Int("pages", doc.NumPages()),
		zap.Bool("title", res.Title != nil),
		zap.Bool("abstract", res.Abstract != nil),
		zap.Bool("doi", res.DOI != nil))
	return res
}

// pageSource reads pages once per extraction. A page the backend fails on
// reads as empty so the heuristics can continue with the rest.
type pageSource struct {
	doc    pdfdoc.Document
	logger *zap.Logger
	cache  map[int]*pdfdoc.Page
}

func (s *pageSource) count() int {
	return s.doc.NumPages()
}

func (s *pageSource) page(n int) *pdfdoc.Page {
	if p, ok := s.cache[n]; ok {
		return p
	}
	p, err := s.doc.Page(n)
	if err != nil {
		s.logger.Warn("skip unreadable page", zap.Int("page", n), zap.Error(err))
		p = &pdfdoc.Page{Number: n}
	}
	if s.cache == nil {
		s.cache = make(map[int]*pdfdoc.Page)
	}
	s.cache[n] = p
	return p
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
