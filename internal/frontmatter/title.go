package frontmatter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/pdfdoc"
)

func (e *Extractor) title(doc pdfdoc.Document, pages *pageSource) string {
	if t := strings.TrimSpace(doc.Metadata(pdfdoc.MetaTitle)); t != "" {
		e.logger.Debug("title from metadata", zap.String("title", t))
		return t
	}
	if pages.count() > 0 {
		if t := largestFontTitle(pages.page(1)); t != "" {
			e.logger.Debug("title from largest font", zap.String("title", t))
			return t
		}
	}
	return firstLine(pages)
}

// largestFontTitle returns the trimmed text of the first text span at the
// strictly largest font size on the page.
func largestFontTitle(p *pdfdoc.Page) string {
	var maxSize float64
	var candidate string
	for _, b := range p.Blocks {
		if b.Kind != pdfdoc.BlockText {
			continue
		}
		for _, l := range b.Lines {
			for _, s := range l.Spans {
				if s.Size > maxSize {
					maxSize = s.Size
					candidate = strings.TrimSpace(s.Text)
				}
			}
		}
	}
	return candidate
}

// firstLine returns the first non-blank line of text across all pages.
func firstLine(pages *pageSource) string {
	for n := 1; n <= pages.count(); n++ {
		for _, line := range pages.page(n).Lines() {
			if t := strings.TrimSpace(line); t != "" {
				return t
			}
		}
	}
	return ""
}
