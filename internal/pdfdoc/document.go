// Package pdfdoc provides a read-only page/block/line/span view over parsed documents.
package pdfdoc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned by Document methods called after Close.
	ErrClosed = errors.New("document closed")
	// ErrPageRange is returned when a page number is outside 1..NumPages.
	ErrPageRange = errors.New("page out of range")
)

// Metadata keys from the PDF document information dictionary.
const (
	MetaTitle   = "Title"
	MetaAuthor  = "Author"
	MetaSubject = "Subject"
)

// BlockKind distinguishes text regions from everything else on a page.
type BlockKind int

const (
	// BlockText is a block made of text lines.
	BlockText BlockKind = iota
	// BlockOther is an image or vector graphic region. It carries no lines.
	BlockOther
)

func (k BlockKind) String() string {
	if k == BlockText {
		return "text"
	}
	return "other"
}

// Span is a run of text with a uniform font and size.
type Span struct {
	Text string
	Font string
	Size float64
}

// Line is an ordered sequence of spans sharing a baseline.
type Line struct {
	Spans []Span
}

// Text returns the concatenated span text of the line.
func (l Line) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Block is a region of a page. Only text blocks have lines.
type Block struct {
	Kind  BlockKind
	Lines []Line
}

// Page is one page of a document: its structured blocks and a flattened
// plain-text rendering where lines are separated by "\n".
type Page struct {
	Number int
	Blocks []Block
	Text   string
}

// Lines splits the page's plain text into lines.
func (p *Page) Lines() []string {
	if p == nil || p.Text == "" {
		return nil
	}
	return strings.Split(p.Text, "\n")
}

// Document is a parsed document. Pages are numbered from 1.
// Implementations release parser resources on Close.
type Document interface {
	NumPages() int
	Page(n int) (*Page, error)
	Metadata(key string) string
	Close() error
}

// OpenFunc opens a document from raw bytes.
type OpenFunc func(data []byte) (Document, error)

// MemoryDocument is a Document whose pages are already built.
type MemoryDocument struct {
	meta   map[string]string
	pages  []*Page
	closed bool
}

// NewMemoryDocument returns a document over the given metadata and pages.
// Page numbers are assigned in order.
func NewMemoryDocument(meta map[string]string, pages ...*Page) *MemoryDocument {
	for i, p := range pages {
		if p != nil {
			p.Number = i + 1
		}
	}
	return &MemoryDocument{meta: meta, pages: pages}
}

// FromPlainText wraps text that has no layout information (e.g. converted
// office documents) into a single-page document with no blocks.
func FromPlainText(text string) *MemoryDocument {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return NewMemoryDocument(nil, &Page{Text: text})
}

// NumPages returns the number of pages.
func (d *MemoryDocument) NumPages() int {
	if d.closed {
		return 0
	}
	return len(d.pages)
}

// Page returns page n (1-based).
func (d *MemoryDocument) Page(n int) (*Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, n, len(d.pages))
	}
	p := d.pages[n-1]
	if p == nil {
		return &Page{Number: n}, nil
	}
	return p, nil
}

// Metadata returns the metadata value for key, or "" when absent.
func (d *MemoryDocument) Metadata(key string) string {
	if d.closed || d.meta == nil {
		return ""
	}
	return d.meta[key]
}

// Close marks the document closed.
func (d *MemoryDocument) Close() error {
	d.closed = true
	return nil
}
