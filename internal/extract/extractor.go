// Package extract converts uploaded documents to line-structured plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for extensions no converter handles.
var ErrUnsupported = errors.New("unsupported document format")

// Extractor converts document files to plain text. Paragraph boundaries are
// kept as line breaks so callers can reason about lines.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot, any case) can be converted.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".odt", ".rtf", ".txt", ".md", ".rst":
		return true
	}
	return false
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes converts content according to ext, which includes the
// leading dot (e.g. ".docx"). PDF pages are separated by a blank line.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractRich(content, ext)
	case ".txt", ".md", ".rst":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}
