package corpus

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/papersim/internal/models"
)

// LoadXLSX reads papers from the first sheet of a workbook. The first row
// names the columns (title, abstract, url, year, id; case-insensitive);
// title and abstract columns are required. Empty rows are skipped.
func LoadXLSX(data []byte, source string) ([]*models.PaperInput, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[name]; !dup && name != "" {
			cols[name] = i
		}
	}
	for _, required := range []string{"title", "abstract"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("sheet %s: missing %q column", sheets[0], required)
		}
	}
	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []*models.PaperInput
	for n, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		y, err := parseYear(cell(row, "year"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year %q", n+2, cell(row, "year"))
		}
		out = append(out, &models.PaperInput{
			ID:       cell(row, "id"),
			Title:    cell(row, "title"),
			Abstract: cell(row, "abstract"),
			URL:      cell(row, "url"),
			Year:     y,
			Source:   source,
		})
	}
	return out, nil
}
