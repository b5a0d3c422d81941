package extract

import (
	"fmt"
	"strings"

	"github.com/hyperjump/papersim/internal/pdfdoc"
)

func extractPDF(content []byte) (string, error) {
	doc, err := pdfdoc.Open(content)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPages())
	for i := 1; i <= doc.NumPages(); i++ {
		p, err := doc.Page(i)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, p.Text)
	}
	return strings.Join(pages, "\n\n"), nil
}
