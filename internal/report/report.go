// Package report renders search results as a PDF document.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperjump/papersim/internal/models"
)

const reportTitle = "Similar papers"

// Write renders response as an A4 PDF: the query first, then one numbered
// entry per result with year, link, score and abstract.
func Write(w io.Writer, response *models.SearchResponse) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(reportTitle, false)
	pdf.SetCreator("papersim", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, reportTitle, "", 1, "L", false, 0, "")
	if response.Title != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 5, tr("Query: "+response.Title), "", "L", false)
	}
	if response.Abstract != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr(response.Abstract), "", "L", false)
	}
	pdf.Ln(4)

	if len(response.Results) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 6, "No similar papers found.", "", 1, "L", false, 0, "")
	}
	for i, r := range response.Results {
		if r.Paper == nil {
			continue
		}
		heading := fmt.Sprintf("%d. %s", i+1, r.Paper.Title)
		if r.Paper.Year > 0 {
			heading += fmt.Sprintf(" (%d)", r.Paper.Year)
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, tr(heading), "", "L", false)

		pdf.SetFont("Helvetica", "", 9)
		if r.Paper.URL != "" {
			pdf.SetTextColor(0, 0, 200)
			pdf.WriteLinkString(5, tr(r.Paper.URL), r.Paper.URL)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(5)
		}
		pdf.CellFormat(0, 5, fmt.Sprintf("Score: %.4f", r.Score), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(r.Paper.Abstract), "", "L", false)
		pdf.Ln(4)
	}
	return pdf.Output(w)
}

// WriteFile writes the report to path, creating parent directories.
func WriteFile(path string, response *models.SearchResponse) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, response); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
