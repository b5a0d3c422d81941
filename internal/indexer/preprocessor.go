package indexer

import (
	"strings"
	"unicode"
)

// Preprocess trims text and collapses runs of whitespace, including the
// line breaks left by PDF extraction, into single spaces.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}
