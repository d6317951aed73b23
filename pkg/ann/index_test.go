package ann

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "ann.db"), 2)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRebuildAndSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Put(ctx, domain.Photo{SourceRef: "a", Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Put(ctx, domain.Photo{SourceRef: "b", Embedding: []float32{0, 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	idx := New(DefaultConfig())
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if idx.Size() != 2 {
		t.Fatalf("expected 2 vectors in the live snapshot, got %d", idx.Size())
	}

	results := idx.Search([]float32{1, 0}, 1)
	if len(results) != 1 || results[0].ID != a {
		t.Fatalf("expected photo %d nearest to (1,0), got %+v", a, results)
	}
}

func TestSearchID_ExcludesSelf(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.Put(ctx, domain.Photo{SourceRef: "a", Embedding: []float32{1, 0}})
	b, _ := s.Put(ctx, domain.Photo{SourceRef: "b", Embedding: []float32{0.99, 0.1}})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	results := idx.SearchID(a, 5)
	for _, r := range results {
		if r.ID == a {
			t.Fatalf("expected self excluded from SearchID, got %+v", results)
		}
	}
	if len(results) != 1 || results[0].ID != b {
		t.Fatalf("expected only photo %d as neighbor, got %+v", b, results)
	}
}

func TestVectorOf_AndAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.Put(ctx, domain.Photo{SourceRef: "a", Embedding: []float32{1, 0}})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	vec, ok := idx.VectorOf(a)
	if !ok || len(vec) != 2 {
		t.Fatalf("expected a normalized 2-dim vector for %d, got %v ok=%v", a, vec, ok)
	}

	ids, vecs := idx.All()
	if len(ids) != 1 || len(vecs) != 1 {
		t.Fatalf("expected All to return exactly one pair, got %d ids, %d vecs", len(ids), len(vecs))
	}
}

func TestSearch_EmptyIndexReturnsNil(t *testing.T) {
	idx := New(DefaultConfig())
	if got := idx.Search([]float32{1, 0}, 5); got != nil {
		t.Fatalf("expected nil results before any Rebuild, got %+v", got)
	}
}

func TestRebuild_IsRepeatable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	good, _ := s.Put(ctx, domain.Photo{SourceRef: "good", Embedding: []float32{1, 0}})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := idx.Rebuild(ctx, s); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if idx.Size() != 1 {
		t.Fatalf("expected 1 vector after repeated rebuild, got %d", idx.Size())
	}
	if _, ok := idx.VectorOf(good); !ok {
		t.Fatalf("expected the well-formed photo to remain indexed")
	}
}
