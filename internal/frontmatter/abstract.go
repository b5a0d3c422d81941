package frontmatter

import "strings"

const abstractKeyword = "abstract"

type abstractState int

const (
	scanning abstractState = iota
	inAbstract
)

// abstractScanner accumulates abstract lines across pages.
type abstractScanner struct {
	state abstractState
	lines []string
}

// feed consumes one page's lines. It reports true once the abstract is
// complete: a page ended while inside the abstract with at least one line
// collected. A blank line inside the abstract ends the page early.
func (s *abstractScanner) feed(lines []string) bool {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if s.state == scanning {
			if strings.HasPrefix(strings.ToLower(line), abstractKeyword) {
				s.state = inAbstract
			}
			continue
		}
		if line == "" {
			break
		}
		s.lines = append(s.lines, line)
	}
	return s.state == inAbstract && len(s.lines) > 0
}

func (s *abstractScanner) text() string {
	return strings.TrimSpace(strings.Join(s.lines, " "))
}

func findAbstract(pages *pageSource) string {
	var s abstractScanner
	for n := 1; n <= pages.count(); n++ {
		if s.feed(pages.page(n).Lines()) {
			break
		}
	}
	return s.text()
}
