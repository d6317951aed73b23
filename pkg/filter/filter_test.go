package filter

import (
	"context"
	"testing"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

func strPtr(s string) *string { return &s }

func TestLocationVariants_JejuIsland(t *testing.T) {
	got := locationVariants("제주도")
	want := map[string]bool{"제주도": true, "제주": true, "제주시": true}
	if len(got) != len(want) {
		t.Fatalf("locationVariants(제주도) = %v, want %v", got, want)
	}
	for _, v := range got {
		if !want[v] {
			t.Fatalf("unexpected variant %q in %v", v, got)
		}
	}
}

func TestLocationVariants_IdempotentAndSymmetric(t *testing.T) {
	base := locationVariants("제주도")
	for _, v := range base {
		again := locationVariants(v)
		for _, a := range again {
			found := false
			for _, b := range base {
				if a == b {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("variants(%q) produced %q outside the original variant set %v", v, a, base)
			}
		}
	}

	short := locationVariants("제주")
	intersects := false
	for _, a := range short {
		for _, b := range base {
			if a == b {
				intersects = true
			}
		}
	}
	if !intersects {
		t.Fatalf("variant sets of 제주 and 제주도 must intersect: %v vs %v", short, base)
	}
}

func TestByTime_MissingTakenAtExcludedOnlyWhenBoundSet(t *testing.T) {
	photos := []domain.Photo{
		{ID: 1, TakenAt: strPtr("2024-06-01")},
		{ID: 2, TakenAt: nil},
	}

	// No bounds: nothing filtered.
	all := ByTime(photos, domain.TimeRange{})
	if len(all) != 2 {
		t.Fatalf("with no bounds expected both photos kept, got %d", len(all))
	}

	// A bound set: the photo missing taken_at is excluded.
	bounded := ByTime(photos, domain.TimeRange{Start: strPtr("2024-01-01")})
	if len(bounded) != 1 || bounded[0].ID != 1 {
		t.Fatalf("expected only photo 1 kept, got %+v", bounded)
	}
}

func TestByLocation_HybridUnion(t *testing.T) {
	loc := &domain.LocationQuery{
		Names:  []string{"제주도"},
		Coords: &domain.GeoTarget{Lat: 33.489, Lon: 126.498, RadiusKM: 10},
	}
	photos := []domain.Photo{
		{ID: 1, GPS: &domain.GPSCoord{Lat: 33.490, Lon: 126.499}},         // within radius
		{ID: 2, GPS: &domain.GPSCoord{Lat: 37.5665, Lon: 126.9780}},       // outside radius, has GPS
		{ID: 3, LocationName: "제주시 애월읍"},                                    // name match, no GPS
		{ID: 4, LocationName: "서울"},                                      // no match
	}

	got := ByLocation(photos, loc)
	ids := map[domain.PhotoId]bool{}
	for _, p := range got {
		ids[p.ID] = true
	}
	if !ids[1] || !ids[3] {
		t.Fatalf("expected photos 1 and 3 kept, got %+v", got)
	}
	if ids[2] || ids[4] {
		t.Fatalf("expected photos 2 and 4 excluded, got %+v", got)
	}
}

func TestByLocation_NilLocationIsNoOp(t *testing.T) {
	photos := []domain.Photo{{ID: 1}, {ID: 2}}
	got := ByLocation(photos, nil)
	if len(got) != 2 {
		t.Fatalf("expected no-op on nil location, got %d photos", len(got))
	}
}

type fakePersonsLookup struct {
	byID map[domain.PhotoId]map[string]bool
}

func (f *fakePersonsLookup) PersonsFor(ctx context.Context, id domain.PhotoId) (map[string]bool, error) {
	return f.byID[id], nil
}

func TestByPeople_Intersection(t *testing.T) {
	results := []domain.SearchResult{{ID: 1}, {ID: 2}, {ID: 3}}
	lookup := &fakePersonsLookup{byID: map[domain.PhotoId]map[string]bool{
		1: {"엄마": true},
		2: {"아빠": true},
		3: {},
	}}

	got := ByPeople(context.Background(), results, []string{"엄마"}, lookup)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only photo 1 kept, got %+v", got)
	}
}

func TestByPeople_EmptyPeopleIsNoOp(t *testing.T) {
	results := []domain.SearchResult{{ID: 1}}
	got := ByPeople(context.Background(), results, nil, &fakePersonsLookup{})
	if len(got) != 1 {
		t.Fatalf("expected no-op with empty people filter")
	}
}
