package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/papersim/internal/corpus"
	"github.com/hyperjump/papersim/internal/extract"
	"github.com/hyperjump/papersim/internal/models"
	"github.com/hyperjump/papersim/internal/paperid"
)

// ImportResult reports what an import did.
type ImportResult struct {
	Source  string   `json:"source"`
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Removed int      `json:"removed"`
	IDs     []string `json:"ids,omitempty"`
}

// add merges r2 into r.
func (r *ImportResult) add(r2 *ImportResult) {
	r.Indexed += r2.Indexed
	r.Skipped += r2.Skipped
	r.Removed += r2.Removed
	r.IDs = append(r.IDs, r2.IDs...)
}

// IsCorpusFile reports whether ext names a file of paper records.
func IsCorpusFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".jsonl", ".json", ".xlsx":
		return true
	}
	return false
}

// IsPaperFile reports whether ext names a single paper document.
func IsPaperFile(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".odt", ".rtf":
		return true
	}
	return false
}

// Importable reports whether ImportFile accepts files with extension ext.
func Importable(ext string) bool {
	return IsCorpusFile(ext) || IsPaperFile(ext)
}

// ImportFile imports the papers in the file at path, using the absolute
// path as their source. Corpus files (.jsonl, .json, .xlsx) add one paper per
// record; papers previously imported from the same file but no longer in it
// are removed. Paper files (.pdf, .docx, .odt, .rtf) add one paper from the
// extracted front matter, or are skipped when the title or abstract cannot
// be found.
func (idx *Indexer) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if !Importable(ext) {
		return nil, fmt.Errorf("%s: %w", abs, extract.ErrUnsupported)
	}
	if err := isRegular(abs); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	idx.logger.Debug("importing file", zap.String("path", abs))

	var res *ImportResult
	if IsPaperFile(ext) {
		res, err = idx.importPaperFile(ctx, abs, ext, data)
	} else {
		res, err = idx.importCorpus(ctx, abs, ext, data)
	}
	if err != nil {
		return nil, err
	}
	res.Source = abs
	idx.logger.Info("imported file",
		zap.String("path", abs),
		zap.Int("indexed", res.Indexed),
		zap.Int("skipped", res.Skipped),
		zap.Int("removed", res.Removed))
	return res, nil
}

func (idx *Indexer) importCorpus(ctx context.Context, source, ext string, data []byte) (*ImportResult, error) {
	var (
		inputs []*models.PaperInput
		err    error
	)
	switch ext {
	case ".xlsx":
		inputs, err = corpus.LoadXLSX(data, source)
	case ".jsonl":
		inputs, err = corpus.LoadJSONL(bytes.NewReader(data), source)
	default:
		inputs, err = corpus.LoadJSON(bytes.NewReader(data), source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(source), err)
	}

	before, err := idx.storage.PaperIDsBySource(ctx, source)
	if err != nil {
		return nil, err
	}
	res, err := idx.IndexPapers(ctx, inputs)
	if err != nil {
		return nil, err
	}
	kept := make(map[string]bool, len(res.IDs))
	for _, id := range res.IDs {
		kept[id] = true
	}
	for _, id := range before {
		if kept[id] {
			continue
		}
		if err := idx.DeletePaper(ctx, id); err != nil {
			return nil, err
		}
		res.Removed++
	}
	return res, nil
}

func (idx *Indexer) importPaperFile(ctx context.Context, source, ext string, data []byte) (*ImportResult, error) {
	fm, err := idx.extractor.ExtractFile(data, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(source), err)
	}
	res := &ImportResult{}
	if !fm.Complete() {
		idx.logger.Warn("no title or abstract found, skipping", zap.String("path", source))
		res.Skipped = 1
		return res, nil
	}
	in := &models.PaperInput{
		ID:       paperid.FromFile(source),
		Title:    *fm.Title,
		Abstract: *fm.Abstract,
		Source:   source,
	}
	if fm.DOI != nil {
		in.URL = "https://doi.org/" + *fm.DOI
	}
	p, err := idx.IndexPaper(ctx, in)
	if err != nil {
		return nil, err
	}
	res.Indexed = 1
	res.IDs = []string{p.ID}
	return res, nil
}

// ImportDirectory walks dir and imports every file whose extension is in
// allowedExts (every importable file when allowedExts is empty). Files that
// fail to import are logged and skipped.
func (idx *Indexer) ImportDirectory(ctx context.Context, dir string, allowedExts []string) (*ImportResult, error) {
	absDir, err := absPath(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	total := &ImportResult{Source: absDir}
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if !Importable(ext) || (len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts)) {
			return nil
		}
		res, err := idx.ImportFile(ctx, path)
		if err != nil {
			idx.logger.Warn("import failed", zap.String("path", path), zap.Error(err))
			total.Skipped++
			return nil
		}
		total.add(res)
		return nil
	})
	return total, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
