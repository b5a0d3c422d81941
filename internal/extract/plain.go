package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string with "\n" line endings.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	return normalizeNewlines(s), nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
