package vector

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func newIndex(t *testing.T, dims int) *MemoryIndex {
	t.Helper()
	idx, err := NewMemoryIndex("test-model", dims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestNewMemoryIndex_invalidDimensions(t *testing.T) {
	if _, err := NewMemoryIndex("m", 0); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx := newIndex(t, 3)
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []string{"a", "b", "c"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("top score = %f, want 1", results[0].Score)
	}
}

func TestMemoryIndex_SearchExcludeAndTies(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"z", "y", "x"}, [][]float32{{1, 0}, {1, 0}, {1, 0}})

	results, err := idx.Search(ctx, []float32{1, 0}, 10, "y")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].ID != "x" || results[1].ID != "z" {
		t.Errorf("results = %v", ids(results))
	}
}

func TestMemoryIndex_SearchEdgeCases(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	if res, err := idx.Search(ctx, []float32{1, 0}, 5); err != nil || len(res) != 0 {
		t.Errorf("empty index: %v %v", res, err)
	}
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	if res, _ := idx.Search(ctx, []float32{1, 0}, 0); len(res) != 0 {
		t.Errorf("k=0 should return nothing, got %d", len(res))
	}
	if _, err := idx.Search(ctx, []float32{1, 0, 0}, 1); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestMemoryIndex_AddReplaces(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
	vec, ok := idx.Get("a")
	if !ok || vec[1] != 1 {
		t.Errorf("Get(a) = %v, %v", vec, ok)
	}
	if err := idx.Add(ctx, []string{"b"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if err := idx.Add(ctx, []string{"b", "c"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y", "z"}, [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}})
	if err := idx.Remove(ctx, []string{"x", "missing"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 2 {
		t.Errorf("expected size 2, got %d", idx.Size())
	}
	if _, ok := idx.Get("x"); ok {
		t.Error("x should be gone")
	}
	if vec, ok := idx.Get("z"); !ok || vec[0] != 0.5 {
		t.Errorf("z after swap-remove = %v, %v", vec, ok)
	}
	idx.Reset()
	if idx.Size() != 0 {
		t.Errorf("Size after Reset = %d", idx.Size())
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vectors.idx")
	ctx := context.Background()

	idx := newIndex(t, 3)
	_ = idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 0.6, 0.8}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := newIndex(t, 3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size = %d", loaded.Size())
	}
	vec, ok := loaded.Get("b")
	if !ok || vec[2] != 0.8 {
		t.Errorf("Get(b) = %v", vec)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestMemoryIndex_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	idx := newIndex(t, 3)

	if err := idx.Load(filepath.Join(dir, "missing.idx")); !IsNotExist(err) {
		t.Errorf("missing file: %v", err)
	}

	other, _ := NewMemoryIndex("other-model", 3)
	_ = other.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0}})
	path := filepath.Join(dir, "other.idx")
	if err := other.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := idx.Load(path); !errors.Is(err, ErrMismatch) {
		t.Errorf("model mismatch: %v", err)
	}

	garbage := filepath.Join(dir, "garbage.idx")
	_ = os.WriteFile(garbage, []byte("nope"), 0600)
	if err := idx.Load(garbage); !errors.Is(err, ErrMismatch) {
		t.Errorf("garbage: %v", err)
	}

	data, _ := os.ReadFile(path)
	same, _ := NewMemoryIndex("other-model", 3)
	truncated := filepath.Join(dir, "truncated.idx")
	_ = os.WriteFile(truncated, data[:len(data)-4], 0600)
	if err := same.Load(truncated); err == nil {
		t.Error("expected error for truncated file")
	}
	if same.Size() != 0 {
		t.Error("failed load must leave the index unchanged")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{3, 4}, []float32{6, 8}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel = %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal = %f", got)
	}
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("zero vector = %f", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("length mismatch = %f", got)
	}
}

func ids(results []*VectorResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}
