// Package pdftest builds small real PDF files for tests.
package pdftest

import (
	"bytes"

	"github.com/jung-kurt/gofpdf"
)

// Text is a run of text placed at (X, Y) points from the top-left corner.
type Text struct {
	X, Y  float64
	Size  float64
	Style string // gofpdf style: "", "B", "I", "BI"
	S     string
}

// Page is the text placed on one page.
type Page []Text

// Doc describes a document to build. Title, when set, is written to the
// information dictionary.
type Doc struct {
	Title  string
	Author string
	Pages  []Page
}

// Build renders d as an uncompressed A4 PDF using Helvetica.
func Build(d Doc) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(false)
	if d.Title != "" {
		pdf.SetTitle(d.Title, false)
	}
	if d.Author != "" {
		pdf.SetAuthor(d.Author, false)
	}
	if len(d.Pages) == 0 {
		pdf.AddPage()
	}
	for _, page := range d.Pages {
		pdf.AddPage()
		for _, t := range page {
			size := t.Size
			if size <= 0 {
				size = 10
			}
			pdf.SetFont("Helvetica", t.Style, size)
			pdf.Text(t.X, t.Y, t.S)
		}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Lines lays out lines top-down at the given size starting 72pt from the
// top. An empty string leaves a paragraph-sized gap instead of a line.
func Lines(size float64, lines ...string) Page {
	page := make(Page, 0, len(lines))
	y := 72.0
	for _, l := range lines {
		if l == "" {
			y += 3 * size
			continue
		}
		page = append(page, Text{X: 72, Y: y, Size: size, S: l})
		y += 1.3 * size
	}
	return page
}
