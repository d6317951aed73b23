// Package recommend implements the visual recommender: the three
// neighbor-set queries per reference photo (visually similar, same
// location, same day) plus K-means clustering over the vector
// population for auto-albums. Similarity comes from the ANN index,
// spatial matching from the geo package's bounding-box math.
package recommend

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/geo"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
)

// defaultSameLocationRadiusKM matches find_same_location's documented
// default.
const defaultSameLocationRadiusKM = 1.0

// photoSource is the narrow capability the recommender needs from the
// store.
type photoSource interface {
	Get(ctx context.Context, id domain.PhotoId) (*domain.Photo, error)
	Scan(ctx context.Context) (<-chan store.ScanRow, error)
}

// annLookup is the narrow capability the recommender needs from the
// ANN index.
type annLookup interface {
	SearchID(id domain.PhotoId, k int) []domain.ScoredID
	VectorOf(id domain.PhotoId) ([]float32, bool)
	All() ([]domain.PhotoId, [][]float32)
}

// Recommender answers the visual recommender's five operations.
type Recommender struct {
	store photoSource
	ann   annLookup
}

// New returns a Recommender.
func New(store photoSource, ann annLookup) *Recommender {
	return &Recommender{store: store, ann: ann}
}

// Recommendations is the triple returned by the combined
// recommendations(id, k) operation.
type Recommendations struct {
	SimilarVisual []domain.ScoredID
	SameLocation  []domain.Photo
	SameDay       []domain.Photo
}

// FindSimilarVisual runs the ANN index against id's stored embedding,
// dropping id itself, returning up to k neighbors.
func (r *Recommender) FindSimilarVisual(ctx context.Context, id domain.PhotoId, k int) ([]domain.ScoredID, error) {
	if _, err := r.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return r.ann.SearchID(id, k), nil
}

// FindSameLocation returns up to k other photos near id: a GPS
// bounding-box match when id has coordinates, else a substring match
// on the primary (comma-prefix) segment of id's location_name, else
// empty.
func (r *Recommender) FindSameLocation(ctx context.Context, id domain.PhotoId, k int, radiusKM float64) ([]domain.Photo, error) {
	if radiusKM <= 0 {
		radiusKM = defaultSameLocationRadiusKM
	}
	ref, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	var matches []domain.Photo
	switch {
	case ref.GPS != nil:
		box := geo.BoxAroundRadiusKM(geo.Coordinate{Lat: ref.GPS.Lat, Lon: ref.GPS.Lon}, radiusKM)
		for _, p := range all {
			if p.ID == id || p.GPS == nil {
				continue
			}
			if box.Contains(geo.Coordinate{Lat: p.GPS.Lat, Lon: p.GPS.Lon}) {
				matches = append(matches, p)
			}
		}

	case ref.LocationName != "":
		primary := primarySegment(ref.LocationName)
		for _, p := range all {
			if p.ID == id {
				continue
			}
			if primary != "" && strings.Contains(strings.ToLower(p.LocationName), strings.ToLower(primary)) {
				matches = append(matches, p)
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// primarySegment returns the comma-prefix segment of a location name
// ("서울특별시, 강남구" -> "서울특별시").
func primarySegment(locationName string) string {
	if i := strings.IndexByte(locationName, ','); i >= 0 {
		return strings.TrimSpace(locationName[:i])
	}
	return strings.TrimSpace(locationName)
}

// FindSameDay returns photos taken within d days of id's taken_at,
// ordered by taken_at ascending, id itself excluded.
func (r *Recommender) FindSameDay(ctx context.Context, id domain.PhotoId, k int, days int) ([]domain.Photo, error) {
	ref, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ref.TakenAt == nil {
		return nil, nil
	}

	refDate, err := time.Parse("2006-01-02", domain.TakenAtDate(*ref.TakenAt))
	if err != nil {
		return nil, nil
	}
	start := refDate.AddDate(0, 0, -days).Format("2006-01-02")
	end := refDate.AddDate(0, 0, days).Format("2006-01-02")

	all, err := r.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	var matches []domain.Photo
	for _, p := range all {
		if p.ID == id || p.TakenAt == nil {
			continue
		}
		d := domain.TakenAtDate(*p.TakenAt)
		if d >= start && d <= end {
			matches = append(matches, p)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := domain.TakenAtDate(*matches[i].TakenAt), domain.TakenAtDate(*matches[j].TakenAt)
		if di != dj {
			return di < dj
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Recommendations answers all three neighbor-set queries for id in one
// call, each capped at the same k.
func (r *Recommender) Recommendations(ctx context.Context, id domain.PhotoId, k int) (Recommendations, error) {
	similar, err := r.FindSimilarVisual(ctx, id, k)
	if err != nil {
		return Recommendations{}, err
	}
	sameLoc, err := r.FindSameLocation(ctx, id, k, defaultSameLocationRadiusKM)
	if err != nil {
		return Recommendations{}, err
	}
	sameDay, err := r.FindSameDay(ctx, id, k, 1)
	if err != nil {
		return Recommendations{}, err
	}
	return Recommendations{SimilarVisual: similar, SameLocation: sameLoc, SameDay: sameDay}, nil
}

// Cluster partitions every unit-norm embedding in the live ANN
// snapshot into n groups via K-means, returning cluster_id -> PhotoIds.
func (r *Recommender) Cluster(n int) map[int][]domain.PhotoId {
	ids, vectors := r.ann.All()
	if len(ids) == 0 {
		return map[int][]domain.PhotoId{}
	}
	return kmeans(ids, vectors, n, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func (r *Recommender) scanAll(ctx context.Context) ([]domain.Photo, error) {
	rows, err := r.store.Scan(ctx)
	if err != nil {
		return nil, domain.Wrap("recommend.scan", domain.CodeStoreUnavailable, err)
	}
	var out []domain.Photo
	for row := range rows {
		if row.Err != nil {
			if errors.Is(row.Err, domain.ErrCorruptEmbedding) {
				out = append(out, *row.Photo)
				continue
			}
			return nil, domain.Wrap("recommend.scan", domain.CodeStoreUnavailable, row.Err)
		}
		out = append(out, *row.Photo)
	}
	return out, nil
}
