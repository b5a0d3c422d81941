package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// wpTag matches a paragraph, self-closing or not. <w:pPr> is excluded by
	// requiring whitespace, '>' or '/' after the tag name.
	wpTag = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*?)?(?:/>|>(.*?)</w:p>)`)
	// wtTag matches <w:t>text</w:t> with any attributes.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// docxMainDocumentPath reads [Content_Types].xml for the main part name,
// falling back to word/document.xml.
func docxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			break
		}
		for _, re := range []*regexp.Regexp{partNameRe, partNameRe2} {
			if m := re.FindSubmatch(data); len(m) > 1 {
				return strings.TrimPrefix(string(m[1]), "/")
			}
		}
		break
	}
	return docxDocumentXMLPath
}

// extractDOCX returns one line per <w:p> paragraph. Runs inside a paragraph
// are concatenated as Word stores them; an empty paragraph yields a blank line.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := docxMainDocumentPath(zr)

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		if docXML, err = readZipFile(f); err != nil {
			return "", fmt.Errorf("extract DOCX: read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	paragraphs := wpTag.FindAllSubmatch(docXML, -1)
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var b strings.Builder
		for _, t := range wtTag.FindAllSubmatch(p[1], -1) {
			b.WriteString(html.UnescapeString(string(t[1])))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), nil
}
