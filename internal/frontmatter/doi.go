package frontmatter

import (
	"regexp"
	"strings"
)

// doiPages is how many leading pages are searched for a DOI.
const doiPages = 3

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

func findDOI(pages *pageSource) string {
	n := pages.count()
	if n > doiPages {
		n = doiPages
	}
	for i := 1; i <= n; i++ {
		if doi := matchDOI(pages.page(i).Text); doi != "" {
			return doi
		}
	}
	return ""
}

// matchDOI returns the first DOI-looking token in text with trailing
// punctuation removed.
func matchDOI(text string) string {
	for _, m := range doiPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:)")
		if isValidDOI(m) {
			return m
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	i := strings.Index(doi, "/")
	return i > 0 && i < len(doi)-1
}
