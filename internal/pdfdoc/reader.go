package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Reader is a Document backed by github.com/ledongthuc/pdf.
type Reader struct {
	r     *pdf.Reader
	pages map[int]*Page
}

// Open parses data as a PDF. Any failure to open the stream, including a
// panic inside the parser, is returned as an error.
func Open(data []byte) (doc *Reader, err error) {
	if len(data) == 0 {
		return nil, errors.New("open PDF: empty input")
	}
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("open PDF: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	// NumPage walks the page tree; a broken tree fails here rather than later.
	_ = r.NumPage()
	return &Reader{r: r, pages: make(map[int]*Page)}, nil
}

// OpenDocument is Open returning the Document interface.
func OpenDocument(data []byte) (Document, error) {
	r, err := Open(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NumPages returns the page count, or 0 after Close.
func (d *Reader) NumPages() (n int) {
	if d.r == nil {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return d.r.NumPage()
}

// Page returns page n (1-based). Pages are laid out once and cached.
// A content stream the parser cannot interpret yields an error for that page only.
func (d *Reader) Page(n int) (page *Page, err error) {
	if d.r == nil {
		return nil, ErrClosed
	}
	if p, ok := d.pages[n]; ok {
		return p, nil
	}
	total := d.NumPages()
	if n < 1 || n > total {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageRange, n, total)
	}
	defer func() {
		if rec := recover(); rec != nil {
			page = nil
			err = fmt.Errorf("read page %d: %v", n, rec)
		}
	}()
	p := d.r.Page(n)
	if p.V.IsNull() {
		page = &Page{Number: n}
		d.pages[n] = page
		return page, nil
	}
	content := p.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{font: t.Font, size: t.FontSize, x: t.X, y: t.Y, w: t.W, s: t.S})
	}
	rects := make([]rect, 0, len(content.Rect))
	for _, r := range content.Rect {
		rects = append(rects, rect{minX: r.Min.X, minY: r.Min.Y, maxX: r.Max.X, maxY: r.Max.Y})
	}
	page = buildPage(n, glyphs, rects)
	d.pages[n] = page
	return page, nil
}

// Metadata returns a string entry of the document information dictionary,
// or "" when the entry is absent or not a string.
func (d *Reader) Metadata(key string) (value string) {
	if d.r == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	v := d.r.Trailer().Key("Info").Key(key)
	if v.Kind() != pdf.String {
		return ""
	}
	return v.Text()
}

// Close drops the parser and cached pages.
func (d *Reader) Close() error {
	d.r = nil
	d.pages = nil
	return nil
}
