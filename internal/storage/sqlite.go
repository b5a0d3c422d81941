package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/papersim/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_papers_source ON papers(source);
	CREATE INDEX IF NOT EXISTS idx_papers_created_at ON papers(created_at);

	CREATE TABLE IF NOT EXISTS paper_embeddings (
		paper_id TEXT NOT NULL,
		model TEXT NOT NULL,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (paper_id, model)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_model ON paper_embeddings(model);
	`
	_, err := db.Exec(schema)
	return err
}

const paperColumns = `id, title, abstract, url, year, source, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(row scanner) (*models.Paper, error) {
	var p models.Paper
	if err := row.Scan(&p.ID, &p.Title, &p.Abstract, &p.URL, &p.Year, &p.Source, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPaper inserts p or updates the existing row with the same ID.
// CreatedAt of an existing row is preserved and written back into p.
func (s *SQLiteStorage) UpsertPaper(ctx context.Context, p *models.Paper) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (`+paperColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title, abstract = excluded.abstract, url = excluded.url,
		   year = excluded.year, source = excluded.source, updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Abstract, p.URL, p.Year, p.Source, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert paper %s: %w", p.ID, err)
	}
	return s.db.QueryRowContext(ctx, `SELECT created_at FROM papers WHERE id = ?`, p.ID).Scan(&p.CreatedAt)
}

// GetPaper returns a paper by ID, or ErrNotFound.
func (s *SQLiteStorage) GetPaper(ctx context.Context, id string) (*models.Paper, error) {
	p, err := scanPaper(s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("paper %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPapers returns the papers with the given IDs keyed by ID. Unknown IDs are omitted.
func (s *SQLiteStorage) GetPapers(ctx context.Context, ids []string) (map[string]*models.Paper, error) {
	out := make(map[string]*models.Paper, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// DeletePaper removes a paper and all of its embeddings. Returns ErrNotFound
// if no paper had that ID.
func (s *SQLiteStorage) DeletePaper(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM paper_embeddings WHERE paper_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("paper %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ListPapers returns papers newest first with offset and limit.
func (s *SQLiteStorage) ListPapers(ctx context.Context, offset, limit int) ([]*models.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paperColumns+` FROM papers ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []*models.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// PaperIDsBySource returns the IDs of papers imported from source.
func (s *SQLiteStorage) PaperIDsBySource(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM papers WHERE source = ? ORDER BY id`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutEmbedding stores vec for the paper under model, replacing any previous vector.
func (s *SQLiteStorage) PutEmbedding(ctx context.Context, paperID, model string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO paper_embeddings (paper_id, model, dims, vector) VALUES (?, ?, ?, ?)
		 ON CONFLICT(paper_id, model) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
		paperID, model, len(vec), encodeVector(vec),
	)
	return err
}

// GetEmbedding returns the stored vector, or ErrNotFound.
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, paperID, model string) ([]float32, error) {
	var dims int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT dims, vector FROM paper_embeddings WHERE paper_id = ? AND model = ?`, paperID, model,
	).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("embedding %s/%s: %w", paperID, model, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return decodeVector(blob, dims)
}

// EachEmbedding calls fn for every vector stored under model, ordered by paper ID.
// Iteration stops at the first error returned by fn.
func (s *SQLiteStorage) EachEmbedding(ctx context.Context, model string, fn func(paperID string, vec []float32) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, dims, vector FROM paper_embeddings WHERE model = ? ORDER BY paper_id`, model)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var dims int
		var blob []byte
		if err := rows.Scan(&id, &dims, &blob); err != nil {
			return err
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", id, err)
		}
		if err := fn(id, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountPapers returns the total number of papers.
func (s *SQLiteStorage) CountPapers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&count)
	return count, err
}

// CountEmbeddings returns the number of vectors stored under model.
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, model string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM paper_embeddings WHERE model = ?`, model).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector packs vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("vector blob is %d bytes, want %d", len(blob), 4*dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
