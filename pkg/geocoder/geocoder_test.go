package geocoder

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResolve_MajorCityRadius(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" || r.URL.Query().Get("limit") != "1" {
			t.Fatalf("missing expected query params: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"40.7128","lon":"-74.0060"}]`))
	}))
	defer srv.Close()

	g, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	target := g.Resolve(t.Context(), "New York")
	if target == nil {
		t.Fatalf("expected a resolved target")
	}
	if target.RadiusKM != majorCityRadiusKM {
		t.Fatalf("RadiusKM = %.1f, want major-city radius %.1f", target.RadiusKM, majorCityRadiusKM)
	}
	if target.Lat < 40 || target.Lat > 41 {
		t.Fatalf("Lat = %.4f, want ~40.71", target.Lat)
	}
}

func TestResolve_DefaultRadius(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"35.1796","lon":"129.0756"}]`))
	}))
	defer srv.Close()

	g, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	target := g.Resolve(t.Context(), "광안리")
	if target == nil {
		t.Fatalf("expected a resolved target")
	}
	if target.RadiusKM != defaultRadiusKM {
		t.Fatalf("RadiusKM = %.1f, want default radius %.1f", target.RadiusKM, defaultRadiusKM)
	}
}

func TestResolve_EmptyResultYieldsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if target := g.Resolve(t.Context(), "nowhere"); target != nil {
		t.Fatalf("expected nil target for empty gazetteer response, got %+v", target)
	}
}

func TestResolve_TimeoutFallsBackToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`[{"lat":"0","lon":"0"}]`))
	}))
	defer srv.Close()

	g, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.client.Timeout = 5 * time.Millisecond

	if target := g.Resolve(t.Context(), "slow place"); target != nil {
		t.Fatalf("expected nil target on timeout, got %+v", target)
	}
}

func TestResolve_CachesByExactString(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"1.0","lon":"2.0"}]`))
	}))
	defer srv.Close()

	g, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g.Resolve(t.Context(), "서울")
	g.Resolve(t.Context(), "서울")
	if calls != 1 {
		t.Fatalf("expected exactly one upstream call after caching, got %d", calls)
	}
}

func TestResolve_EmptyNameIsNoOp(t *testing.T) {
	g, err := New("http://example.invalid")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if target := g.Resolve(t.Context(), "   "); target != nil {
		t.Fatalf("expected nil for blank name, got %+v", target)
	}
}
