package search

import (
	"context"
	"testing"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
)

func strPtr(s string) *string { return &s }

type fakeStore struct {
	photos  []domain.Photo
	persons map[domain.PhotoId]map[string]bool
}

func (f *fakeStore) Scan(ctx context.Context) (<-chan store.ScanRow, error) {
	ch := make(chan store.ScanRow, len(f.photos))
	for i := range f.photos {
		p := f.photos[i]
		ch <- store.ScanRow{Photo: &p}
	}
	close(ch)
	return ch, nil
}

func (f *fakeStore) PersonsFor(ctx context.Context, id domain.PhotoId) (map[string]bool, error) {
	return f.persons[id], nil
}

type fakeANN struct {
	results []domain.ScoredID
}

func (f *fakeANN) Search(q []float32, k int) []domain.ScoredID {
	if len(f.results) > k {
		return f.results[:k]
	}
	return f.results
}

type fakeEmbedder struct{}

func (fakeEmbedder) EncodeImage(ctx context.Context, data []byte) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (fakeEmbedder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func TestSearch_BranchA_LocationOnly(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{
		{ID: 1, LocationName: "제주시", TakenAt: strPtr("2024-01-01")},
		{ID: 2, LocationName: "제주시", TakenAt: strPtr("2024-06-01")},
	}}
	eng := New(s, &fakeANN{}, nil)

	plan := domain.QueryPlan{Location: &domain.LocationQuery{Names: []string{"제주도"}}}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 2 || results[0].Similarity != 1.0 {
		t.Fatalf("expected id 2 first with similarity 1.0, got %+v", results[0])
	}
}

func TestSearch_BranchB_Semantic(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{
		{ID: 1, SourceRef: "a"},
		{ID: 2, SourceRef: "b"},
	}}
	ann := &fakeANN{results: []domain.ScoredID{
		{ID: 1, Score: 0.30},
		{ID: 2, Score: 0.10},
	}}
	eng := New(s, ann, fakeEmbedder{})

	plan := domain.QueryPlan{SearchText: "pasta"}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	// tau for "pasta" (food class) is 0.24; only id 1 (0.30) passes.
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected only id 1 to pass threshold, got %+v", results)
	}
}

func TestSearch_BranchB_SimilaritiesNonIncreasing(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{{ID: 1}, {ID: 2}, {ID: 3}}}
	ann := &fakeANN{results: []domain.ScoredID{
		{ID: 3, Score: 0.61},
		{ID: 1, Score: 0.45},
		{ID: 2, Score: 0.31},
	}}
	eng := New(s, ann, fakeEmbedder{})

	results, err := eng.Search(context.Background(), domain.QueryPlan{SearchText: "pasta"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results above threshold, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Fatalf("similarities must be non-increasing, got %+v", results)
		}
	}
}

func TestSearch_BranchB_TopScoreFallback(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{{ID: 1}}}
	ann := &fakeANN{results: []domain.ScoredID{{ID: 1, Score: 0.21}}}
	eng := New(s, ann, fakeEmbedder{})

	plan := domain.QueryPlan{SearchText: "something obscure"}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected the single top-score fallback result, got %+v", results)
	}
}

func TestSearch_BranchB_EmptyWhenBelowFloor(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{{ID: 1}}}
	ann := &fakeANN{results: []domain.ScoredID{{ID: 1, Score: 0.05}}}
	eng := New(s, ann, fakeEmbedder{})

	plan := domain.QueryPlan{SearchText: "something obscure"}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results below the 0.20 floor, got %+v", results)
	}
}

func TestSearch_BranchC_NoSemanticNoLocation(t *testing.T) {
	s := &fakeStore{photos: []domain.Photo{{ID: 2}, {ID: 1}}}
	eng := New(s, &fakeANN{}, nil)

	plan := domain.QueryPlan{}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].ID != 1 || results[0].Similarity != 0 {
		t.Fatalf("expected ascending-id, zero-similarity results, got %+v", results)
	}
}

func TestSearch_PeopleFilterAppliedLast(t *testing.T) {
	s := &fakeStore{
		photos: []domain.Photo{{ID: 1}, {ID: 2}},
		persons: map[domain.PhotoId]map[string]bool{
			1: {"엄마": true},
		},
	}
	eng := New(s, &fakeANN{}, nil)

	plan := domain.QueryPlan{People: []string{"엄마"}}
	results, err := eng.Search(context.Background(), plan, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("expected only id 1 to survive the people filter, got %+v", results)
	}
}

func TestSearch_InvalidK(t *testing.T) {
	eng := New(&fakeStore{}, &fakeANN{}, nil)
	if _, err := eng.Search(context.Background(), domain.QueryPlan{}, 0); err == nil {
		t.Fatalf("expected an error for k <= 0")
	}
}
