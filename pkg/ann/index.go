// Package ann implements the in-memory approximate-nearest-neighbor
// index: a snapshot of the embedding store's unit-norm vectors, searched
// by inner product via an HNSW graph (github.com/fogfish/hnsw over
// github.com/kshard/vector's cosine surface), keyed by PhotoId and
// wrapped in an atomic pointer so a concurrent rebuild never blocks or
// invalidates an in-flight Search.
package ann

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	surface "github.com/kshard/vector"
	"github.com/rs/zerolog"

	"github.com/jiyeon-yoon/picta-prototype/internal/encoding"
	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/store"
)

// Config tunes the underlying HNSW graph.
type Config struct {
	M              int // max neighbors per node
	EfConstruction int
	EfSearch       int
}

// DefaultConfig returns parameters adequate for corpora up to ~10^5
// vectors.
func DefaultConfig() Config {
	return Config{M: 16, EfConstruction: 200, EfSearch: 200}
}

// Index is the live ANN index: safe for concurrent Search, with
// rebuild serialized against itself and published via a single atomic
// pointer swap; the previous snapshot keeps serving reads until the
// new one is fully built.
type Index struct {
	cfg       Config
	rebuildMu sync.Mutex
	live      atomic.Pointer[snapshot]
	log       zerolog.Logger
}

// snapshot is one immutable, fully-built index generation.
type snapshot struct {
	graph   *hnsw.HNSW[vector.VF32]
	vectors map[uint32][]float32
	ids     map[uint32]domain.PhotoId
}

// New returns an empty index; call Rebuild before the first Search.
func New(cfg Config) *Index {
	return &Index{cfg: cfg, log: logging.Component("ann")}
}

// Rebuild performs a full scan of src, skips rows the store tags as
// CorruptEmbedding (wrong length; logged once per row) and rows with an
// empty embedding, defensively re-normalizes every remaining embedding
// rather than rejecting off-norm ones, and atomically publishes the new
// index. The previous snapshot continues to serve Search calls made
// before the swap. Rebuild calls are serialized against each other;
// concurrent Search calls are never blocked.
func (idx *Index) Rebuild(ctx context.Context, src *store.Store) error {
	idx.rebuildMu.Lock()
	defer idx.rebuildMu.Unlock()

	rows, err := src.Scan(ctx)
	if err != nil {
		return domain.Wrap("ann.rebuild", domain.CodeStoreUnavailable, err)
	}

	graph := hnsw.New(
		vector.SurfaceVF32(surface.Cosine()),
		hnsw.WithM(idx.cfg.M),
		hnsw.WithEfConstruction(idx.cfg.EfConstruction),
	)
	vectors := make(map[uint32][]float32)
	ids := make(map[uint32]domain.PhotoId)

	var nextKey uint32 = 1
	var skipped int
	for row := range rows {
		if row.Err != nil {
			if errors.Is(row.Err, domain.ErrCorruptEmbedding) {
				skipped++
				idx.log.Warn().Err(row.Err).Msg("skipping corrupt embedding at rebuild")
				continue
			}
			return domain.Wrap("ann.rebuild", domain.CodeStoreUnavailable, row.Err)
		}
		p := row.Photo
		if len(p.Embedding) == 0 {
			skipped++
			continue
		}

		vec := encoding.Normalize(p.Embedding)
		key := nextKey
		nextKey++
		vectors[key] = vec
		ids[key] = p.ID
		graph.Insert(vector.VF32{Key: key, Vec: vec})
	}

	idx.live.Store(&snapshot{graph: graph, vectors: vectors, ids: ids})
	idx.log.Info().Int("size", len(ids)).Int("skipped", skipped).Msg("ann index rebuilt")
	return nil
}

// Search returns up to k photos nearest q (assumed unit norm) by
// descending cosine similarity. Safe to call concurrently with Rebuild
// and with other Search calls.
func (idx *Index) Search(q []float32, k int) []domain.ScoredID {
	snap := idx.live.Load()
	if snap == nil || len(snap.ids) == 0 || k <= 0 {
		return nil
	}

	probe := k * 4
	if probe < 32 {
		probe = 32
	}
	if probe > len(snap.ids) {
		probe = len(snap.ids)
	}

	neighbors := snap.graph.Search(vector.VF32{Key: 0, Vec: q}, probe, idx.cfg.EfSearch)

	scored := make([]domain.ScoredID, 0, len(neighbors))
	for _, n := range neighbors {
		vec, ok := snap.vectors[n.Key]
		if !ok {
			continue
		}
		id, ok := snap.ids[n.Key]
		if !ok {
			continue
		}
		scored = append(scored, domain.ScoredID{ID: id, Score: encoding.CosineSimilarity(q, vec)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// SearchID runs Search using the stored embedding of id, dropping id
// itself from the results, the shape the visual recommender's
// find_similar_visual needs.
func (idx *Index) SearchID(id domain.PhotoId, k int) []domain.ScoredID {
	snap := idx.live.Load()
	if snap == nil {
		return nil
	}
	var key uint32
	var found bool
	for kk, v := range snap.ids {
		if v == id {
			key = kk
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	q := snap.vectors[key]
	results := idx.Search(q, k+1)
	out := make([]domain.ScoredID, 0, k)
	for _, r := range results {
		if r.ID == id {
			continue
		}
		out = append(out, r)
		if len(out) == k {
			break
		}
	}
	return out
}

// VectorOf returns the normalized vector the index holds for id, used
// by the recommender and by clustering so both work off the exact same
// snapshot Search uses.
func (idx *Index) VectorOf(id domain.PhotoId) ([]float32, bool) {
	snap := idx.live.Load()
	if snap == nil {
		return nil, false
	}
	for k, v := range snap.ids {
		if v == id {
			return snap.vectors[k], true
		}
	}
	return nil, false
}

// All returns every (PhotoId, vector) pair in the live snapshot, used
// by K-means clustering over the full vector population.
func (idx *Index) All() ([]domain.PhotoId, [][]float32) {
	snap := idx.live.Load()
	if snap == nil {
		return nil, nil
	}
	ids := make([]domain.PhotoId, 0, len(snap.ids))
	vecs := make([][]float32, 0, len(snap.ids))
	for k, id := range snap.ids {
		ids = append(ids, id)
		vecs = append(vecs, snap.vectors[k])
	}
	return ids, vecs
}

// Size returns the number of vectors in the live snapshot.
func (idx *Index) Size() int {
	snap := idx.live.Load()
	if snap == nil {
		return 0
	}
	return len(snap.ids)
}
