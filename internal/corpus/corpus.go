// Package corpus loads paper records from JSON Lines and spreadsheet files.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/papersim/internal/models"
)

// maxLine bounds a single JSON Lines record.
const maxLine = 16 << 20

// record is one corpus entry as found in the data files.
type record struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	URL      string `json:"url"`
	Year     year   `json:"year"`
}

func (r *record) input(source string) *models.PaperInput {
	return &models.PaperInput{
		ID:       strings.TrimSpace(r.ID),
		Title:    strings.TrimSpace(r.Title),
		Abstract: strings.TrimSpace(r.Abstract),
		URL:      strings.TrimSpace(r.URL),
		Year:     int(r.Year),
		Source:   source,
	}
}

// year accepts a JSON number, a numeric string or null.
type year int

func (y *year) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*y = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	n, err := parseYear(s)
	if err != nil {
		return fmt.Errorf("invalid year %s", b)
	}
	*y = year(n)
	return nil
}

func parseYear(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// LoadJSONL reads one JSON object per line. Blank lines are skipped. A
// malformed line fails the whole load with an error naming the line.
func LoadJSONL(r io.Reader, source string) ([]*models.PaperInput, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	var out []*models.PaperInput
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec.input(source))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return out, nil
}

// LoadJSON reads either a JSON array of records or JSON Lines.
func LoadJSON(r io.Reader, source string) ([]*models.PaperInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("[")) {
		return LoadJSONL(bytes.NewReader(data), source)
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	out := make([]*models.PaperInput, len(recs))
	for i := range recs {
		out[i] = recs[i].input(source)
	}
	return out, nil
}
