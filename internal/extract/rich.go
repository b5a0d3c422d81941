package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractRich converts ODT and RTF through lu4p/cat, which sniffs the format
// from the content itself.
func extractRich(content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("extract %s: empty input", strings.TrimPrefix(ext, "."))
	}
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return normalizeNewlines(text), nil
}
