// Package search implements the search engine: the parser's QueryPlan
// narrowed by the metadata filter, then ranked by one of three
// branches. Location-only queries rank by stored recency, queries
// carrying real search text rank by semantic similarity via the ANN
// index against the threshold policy's cutoff, and date-only queries
// with neither return first-k with a zero similarity.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/embed"
	"github.com/jiyeon-yoon/picta-prototype/pkg/filter"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
	"github.com/jiyeon-yoon/picta-prototype/pkg/threshold"
)

// annIndex is the narrow capability the engine needs from the ANN
// index, satisfied by *ann.Index.
type annIndex interface {
	Search(q []float32, k int) []domain.ScoredID
}

// photoSource is the narrow capability the engine needs from the
// store: a full scan for filtering, plus the people-filter lookup
// *store.Store already implements.
type photoSource interface {
	Scan(ctx context.Context) (<-chan store.ScanRow, error)
	filter.PersonsLookup
}

// Engine answers search(plan, k) requests.
type Engine struct {
	store    photoSource
	ann      annIndex
	embedder embed.Embedder
	log      zerolog.Logger
}

// New returns an Engine. embedder may be nil only if callers never
// issue a query with non-empty SearchText (Branch B requires it).
func New(store photoSource, ann annIndex, embedder embed.Embedder) *Engine {
	return &Engine{store: store, ann: ann, embedder: embedder, log: logging.Component("search")}
}

// Search answers plan with up to k results, following the branch
// policy: location-only queries rank by recency, queries with search
// text rank by semantic similarity, everything else returns first-k by
// id with a zero similarity. The people filter is applied last,
// regardless of branch.
func (e *Engine) Search(ctx context.Context, plan domain.QueryPlan, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		return nil, domain.Wrap("search", domain.CodeInvalidQuery, fmt.Errorf("k must be positive"))
	}

	all, err := e.allPhotos(ctx)
	if err != nil {
		return nil, err
	}

	dateSet := filter.ByTime(all, plan.TimeRange)

	hasLocation := plan.Location != nil
	var locSet []domain.Photo
	if hasLocation {
		locSet = filter.ByLocation(dateSet, plan.Location)
	}

	hasKeywords := len(meaningfulKeywords(plan)) > 0

	var results []domain.SearchResult
	switch {
	case hasLocation && !hasKeywords:
		results = branchA(locSet, k)

	case plan.SearchText != "":
		candidates := dateSet
		if hasLocation {
			candidates = locSet
		}
		results, err = e.branchB(ctx, plan.SearchText, candidates, k)
		if err != nil {
			return nil, err
		}

	default:
		results = branchC(dateSet, k)
	}

	return filter.ByPeople(ctx, results, plan.People, e.store), nil
}

// allPhotos scans the full corpus, logging and skipping rows whose
// embedding failed the stored-length invariant rather than failing the
// whole search.
func (e *Engine) allPhotos(ctx context.Context) ([]domain.Photo, error) {
	rows, err := e.store.Scan(ctx)
	if err != nil {
		return nil, domain.Wrap("search.scan", domain.CodeStoreUnavailable, err)
	}

	var out []domain.Photo
	for row := range rows {
		if row.Err != nil {
			if errors.Is(row.Err, domain.ErrCorruptEmbedding) {
				e.log.Warn().Err(row.Err).Msg("skipping photo with corrupt embedding")
				continue
			}
			return nil, domain.Wrap("search.scan", domain.CodeStoreUnavailable, row.Err)
		}
		out = append(out, *row.Photo)
	}
	return out, nil
}

// branchA implements the location-only branch: descending taken_at,
// ties broken ascending by id, similarity pinned to 1.0, no ANN call.
func branchA(photos []domain.Photo, k int) []domain.SearchResult {
	sort.SliceStable(photos, func(i, j int) bool {
		ti, tj := takenAtOrEmpty(photos[i]), takenAtOrEmpty(photos[j])
		if ti != tj {
			return ti > tj
		}
		return photos[i].ID < photos[j].ID
	})
	if len(photos) > k {
		photos = photos[:k]
	}
	return enrichAll(photos, 1.0)
}

// branchC implements the no-semantic branch: the first k of date_set
// in ascending-id order, similarity 0.
func branchC(photos []domain.Photo, k int) []domain.SearchResult {
	sort.SliceStable(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
	if len(photos) > k {
		photos = photos[:k]
	}
	return enrichAll(photos, 0)
}

// branchB implements the semantic branch: encode the query text, take
// the ANN's top-100, restrict to candidates, apply the threshold
// policy's keep/fallback/empty rule, then truncate to k.
func (e *Engine) branchB(ctx context.Context, searchText string, candidates []domain.Photo, k int) ([]domain.SearchResult, error) {
	if e.embedder == nil {
		return nil, domain.Wrap("search.encode_text", domain.CodeModelUnavailable, fmt.Errorf("no embedder configured"))
	}

	q, err := e.embedder.EncodeText(ctx, searchText)
	if err != nil {
		return nil, domain.Wrap("search.encode_text", domain.CodeModelUnavailable, err)
	}

	candMap := make(map[domain.PhotoId]domain.Photo, len(candidates))
	for _, p := range candidates {
		candMap[p.ID] = p
	}

	scored := e.ann.Search(q, 100)

	inSet := make([]domain.ScoredID, 0, len(scored))
	for _, s := range scored {
		if _, ok := candMap[s.ID]; ok {
			inSet = append(inSet, s)
		}
	}

	tau := threshold.Tau(searchText)
	kept := make([]domain.ScoredID, 0, len(inSet))
	for _, s := range inSet {
		if s.Score > tau {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 && len(inSet) > 0 && inSet[0].Score >= 0.20 {
		kept = inSet[:1]
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})
	if len(kept) > k {
		kept = kept[:k]
	}

	results := make([]domain.SearchResult, 0, len(kept))
	for _, s := range kept {
		results = append(results, enrichOne(candMap[s.ID], s.Score))
	}
	return results, nil
}

func takenAtOrEmpty(p domain.Photo) string {
	if p.TakenAt == nil {
		return ""
	}
	return *p.TakenAt
}

func enrichOne(p domain.Photo, score float64) domain.SearchResult {
	return domain.SearchResult{
		ID:           p.ID,
		SourceRef:    p.SourceRef,
		TakenAt:      p.TakenAt,
		LocationName: p.LocationName,
		GPS:          p.GPS,
		Similarity:   score,
		Metadata:     p.Metadata,
	}
}

func enrichAll(photos []domain.Photo, score float64) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(photos))
	for _, p := range photos {
		out = append(out, enrichOne(p, score))
	}
	return out
}
