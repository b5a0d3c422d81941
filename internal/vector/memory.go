package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// indexMagic starts every saved index file.
const indexMagic = "PSVI"

// MemoryIndex is an in-memory vector index using brute-force inner product
// search. A corpus of tens of thousands of papers searches in milliseconds.
type MemoryIndex struct {
	dimensions int
	model      string
	ids        []string
	vectors    [][]float32
	pos        map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index for vectors of the given
// model and dimension.
func NewMemoryIndex(model string, dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		model:      model,
		pos:        make(map[string]int),
	}, nil
}

// Add inserts vectors with the given IDs, replacing existing ones.
func (m *MemoryIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	for i := range vectors {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, id := range ids {
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		if p, ok := m.pos[id]; ok {
			m.vectors[p] = vec
			continue
		}
		m.pos[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
	}
	return nil
}

// Search returns the top-k vectors by inner product. Ties are broken by ID
// so results are deterministic.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int, exclude ...string) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	results := make([]*VectorResult, 0, len(m.ids))
	for i, vec := range m.vectors {
		if skip[m.ids[i]] {
			continue
		}
		results = append(results, &VectorResult{ID: m.ids[i], Score: InnerProduct(query, vec)})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Get returns a copy of the vector stored for id.
func (m *MemoryIndex) Get(id string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pos[id]
	if !ok {
		return nil, false
	}
	vec := make([]float32, m.dimensions)
	copy(vec, m.vectors[p])
	return vec, true
}

// Remove deletes vectors by ID. Unknown IDs are ignored.
func (m *MemoryIndex) Remove(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		p, ok := m.pos[id]
		if !ok {
			continue
		}
		last := len(m.ids) - 1
		if p != last {
			m.ids[p], m.vectors[p] = m.ids[last], m.vectors[last]
			m.pos[m.ids[p]] = p
		}
		m.ids, m.vectors = m.ids[:last], m.vectors[:last]
		delete(m.pos, id)
	}
	return nil
}

// Reset drops every vector.
func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.vectors = nil, nil
	m.pos = make(map[string]int)
}

// Save persists the index to path, creating the directory if needed.
// Format (little endian): magic, dimensions u32, model length u32, model,
// count u32, then per vector: id length u32, id, dimensions float32s.
// The file is written to a temporary name and renamed into place.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	err = m.write(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, path)
}

func (m *MemoryIndex) write(w io.Writer) error {
	le := binary.LittleEndian
	if _, err := io.WriteString(w, indexMagic); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint32(m.dimensions)); err != nil {
		return err
	}
	if err := writeString(w, m.model); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint32(len(m.ids))); err != nil {
		return err
	}
	buf := make([]byte, 4*m.dimensions)
	for i, id := range m.ids {
		if err := writeString(w, id); err != nil {
			return err
		}
		for j, v := range m.vectors[i] {
			le.PutUint32(buf[4*j:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 1<<20 {
		return "", fmt.Errorf("string length %d too large", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Load replaces the in-memory contents with the file at path. A missing
// file returns an error matching fs.ErrNotExist; a file for another model
// or dimension returns ErrMismatch. On error the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	le := binary.LittleEndian

	magic := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return fmt.Errorf("%w: not a vector index file", ErrMismatch)
	}
	var dim, n uint32
	if err := binary.Read(r, le, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	model, err := readString(r)
	if err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	if int(dim) != m.dimensions || model != m.model {
		return fmt.Errorf("%w: file has %s/%d, index expects %s/%d", ErrMismatch, model, dim, m.model, m.dimensions)
	}
	if err := binary.Read(r, le, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	pos := make(map[string]int, n)
	buf := make([]byte, 4*m.dimensions)
	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return fmt.Errorf("read id %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		vec := make([]float32, m.dimensions)
		for j := range vec {
			vec[j] = math.Float32frombits(le.Uint32(buf[4*j:]))
		}
		pos[id] = len(ids)
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids, m.vectors, m.pos = ids, vectors, pos
	return nil
}

// IsNotExist reports whether err from Load means there was no file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
