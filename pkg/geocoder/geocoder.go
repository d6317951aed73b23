// Package geocoder resolves a place name to a lat/lon/radius target via
// an external HTTP gazetteer, with an in-process LRU result cache and a
// 3-second deadline. Any failure (timeout, non-200, malformed body)
// resolves to "no coordinates" rather than propagating: a search query
// with an unresolvable place name degrades to name-only location
// filtering instead of failing.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultCacheSize = 512

	majorCityRadiusKM = 20.0
	defaultRadiusKM   = 5.0
)

// majorCityAliases is the hardcoded bilingual list of "major city" names
// that widen the geocoder's default search radius.
var majorCityAliases = map[string]bool{
	"뉴욕":      true,
	"new york": true,
	"서울":      true,
	"seoul":    true,
	"파리":      true,
	"paris":    true,
	"도쿄":      true,
	"tokyo":    true,
	"라스베가스":   true,
	"las vegas": true,
	"런던":      true,
	"london":   true,
	"로스앤젤레스":  true,
	"los angeles": true,
	"부산":      true,
	"busan":    true,
}

// Geocoder resolves place names against an HTTP gazetteer, with
// results cached by exact input string.
type Geocoder struct {
	client  *http.Client
	baseURL string
	cache   *lru.Cache[string, *domain.GeoTarget]
	log     zerolog.Logger
}

// New returns a Geocoder querying baseURL (a Nominatim-compatible
// search endpoint). An empty baseURL is rejected; callers that want
// the default should pass config.Config.GeocoderURL.
func New(baseURL string) (*Geocoder, error) {
	if baseURL == "" {
		return nil, domain.Wrap("geocoder.new", domain.CodeInvalidQuery, fmt.Errorf("empty geocoder URL"))
	}
	cache, err := lru.New[string, *domain.GeoTarget](defaultCacheSize)
	if err != nil {
		return nil, domain.Wrap("geocoder.new", domain.CodeStoreUnavailable, err)
	}
	return &Geocoder{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: baseURL,
		cache:   cache,
		log:     logging.Component("geocoder"),
	}, nil
}

// Resolve maps name to a GeoTarget, or nil if the gazetteer has no
// match or any error occurs; the geocoder never raises a resolvable
// failure to its caller. Results are cached by the exact input string,
// so even a "none" result is not worth memoizing on this deliberately
// simple cache (a transient failure should retry on the next call).
func (g *Geocoder) Resolve(ctx context.Context, name string) *domain.GeoTarget {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if cached, ok := g.cache.Get(name); ok {
		return cached
	}

	target, err := g.fetch(ctx, name)
	if err != nil {
		g.log.Warn().Err(err).Str("name", name).Msg("geocoder: falling back to no coordinates")
		return nil
	}
	if target == nil {
		return nil
	}

	g.cache.Add(name, target)
	return target
}

func (g *Geocoder) fetch(ctx context.Context, name string) (*domain.GeoTarget, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	u, err := url.Parse(g.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder URL: %w", err)
	}
	q := u.Query()
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocoder request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder: unexpected status %d", resp.StatusCode)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon: %w", err)
	}

	return &domain.GeoTarget{Lat: lat, Lon: lon, RadiusKM: radiusFor(name)}, nil
}

// radiusFor returns the search radius policy for name: 20km for a
// hardcoded bilingual list of major cities, 5km otherwise.
func radiusFor(name string) float64 {
	if IsMajorCity(name) {
		return majorCityRadiusKM
	}
	return defaultRadiusKM
}

// IsMajorCity reports whether name (case-insensitive) matches the
// hardcoded bilingual major-city alias list. Exported so the query
// parser can apply the same list when choosing which of a location's
// name variants to hand to the geocoder.
func IsMajorCity(name string) bool {
	return majorCityAliases[strings.ToLower(strings.TrimSpace(name))]
}
