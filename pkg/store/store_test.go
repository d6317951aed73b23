package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

func unitVec(d int) []float32 {
	v := make([]float32, d)
	v[0] = 1
	return v
}

func openTestStore(t *testing.T, dim int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path, dim)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPut_InsertAndGet(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()

	id, err := s.Put(ctx, domain.Photo{SourceRef: "a.jpg", Embedding: unitVec(4), LocationName: "서울"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceRef != "a.jpg" || got.LocationName != "서울" {
		t.Fatalf("unexpected photo: %+v", got)
	}
	if got.UploadedAt == "" {
		t.Fatal("expected UploadedAt to be stamped on insert")
	}
}

func TestPut_UpsertBySourceRef(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()

	id1, err := s.Put(ctx, domain.Photo{SourceRef: "dup.jpg", Embedding: unitVec(4), LocationName: "first"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	id2, err := s.Put(ctx, domain.Photo{SourceRef: "dup.jpg", Embedding: unitVec(4), LocationName: "second"})
	if err != nil {
		t.Fatalf("Put (update): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected upsert to keep the same id, got %d and %d", id1, id2)
	}

	got, err := s.Get(ctx, id1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LocationName != "second" {
		t.Fatalf("expected upsert to replace location_name, got %q", got.LocationName)
	}
}

func TestPut_DimensionMismatchRejected(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()

	if _, err := s.Put(ctx, domain.Photo{SourceRef: "x.jpg", Embedding: unitVec(3)}); err == nil {
		t.Fatal("expected an error for a dimension mismatch")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t, 4)
	if _, err := s.Get(context.Background(), 9999); err == nil {
		t.Fatal("expected an error for a missing photo id")
	}
}

func TestScan_YieldsAllRows(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ref := "gdrive://" + uuid.NewString()
		if _, err := s.Put(ctx, domain.Photo{SourceRef: ref, Embedding: unitVec(4)}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	rows, err := s.Scan(ctx)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	count := 0
	for row := range rows {
		if row.Err != nil {
			t.Fatalf("unexpected row error: %v", row.Err)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 rows, got %d", count)
	}
}

func TestPersonsFor(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	id, err := s.Put(ctx, domain.Photo{SourceRef: "face.jpg", Embedding: unitVec(4)})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.PutFace(ctx, id, domain.FaceRecord{PersonName: "엄마", Confidence: 0.9}); err != nil {
		t.Fatalf("PutFace: %v", err)
	}

	persons, err := s.PersonsFor(ctx, id)
	if err != nil {
		t.Fatalf("PersonsFor: %v", err)
	}
	if !persons["엄마"] {
		t.Fatalf("expected 엄마 in persons set, got %+v", persons)
	}
}

func TestClose_RejectsFurtherWrites(t *testing.T) {
	s := openTestStore(t, 4)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Put(context.Background(), domain.Photo{SourceRef: "late.jpg", Embedding: unitVec(4)}); err == nil {
		t.Fatal("expected a write after Close to fail")
	}
}

func TestDim_AutoDetectsFromFirstInsert(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()
	if s.Dim() != 0 {
		t.Fatalf("expected dim 0 before any insert, got %d", s.Dim())
	}
	if _, err := s.Put(ctx, domain.Photo{SourceRef: "auto.jpg", Embedding: unitVec(8)}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if s.Dim() != 8 {
		t.Fatalf("expected dim to auto-detect as 8, got %d", s.Dim())
	}
}
