// Package paperid derives stable paper IDs so re-importing a paper updates
// it in place instead of adding a duplicate.
package paperid

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/papersim/internal/models"
)

// namespace scopes every derived ID.
var namespace = uuid.MustParse("5d0e2f4c-8b8f-4c1e-9a55-3f0f5b8f6a21")

// FromURL returns the ID of the paper published at url.
func FromURL(url string) string {
	return uuid.NewSHA1(namespace, []byte("url:"+strings.TrimSpace(url))).String()
}

// FromTitleYear returns the ID of a paper without URL. Titles are compared
// case-insensitively with whitespace collapsed.
func FromTitleYear(title string, year int) string {
	key := strings.ToLower(strings.Join(strings.Fields(title), " ")) + "|" + strconv.Itoa(year)
	return uuid.NewSHA1(namespace, []byte("title:"+key)).String()
}

// FromFile returns the ID of the paper extracted from the file at path.
func FromFile(path string) string {
	return uuid.NewSHA1(namespace, []byte("file:"+filepath.Clean(path))).String()
}

// For returns in.ID when set, otherwise the ID derived from URL or from
// title and year.
func For(in *models.PaperInput) string {
	if id := strings.TrimSpace(in.ID); id != "" {
		return id
	}
	if strings.TrimSpace(in.URL) != "" {
		return FromURL(in.URL)
	}
	return FromTitleYear(in.Title, in.Year)
}
