// Package indexer consumes a scraper's item stream, runs each item
// through the embedding model, writes the result to the embedding
// store, and triggers an ANN rebuild at the end of the batch. A single
// failed item is logged and skipped rather than aborting the whole
// batch. encode_image calls fan out across an errgroup bounded by a
// weighted semaphore, so a slow embedding backend never has more than
// INDEXER_WORKERS calls in flight at once.
package indexer

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/embed"
)

// Item is one unit of work from a scraper: image bytes plus whatever
// metadata the scraper already knows about the photo.
type Item struct {
	Bytes        []byte
	SourceRef    string
	ThumbnailRef string
	TakenAt      *string
	GPS          *domain.GPSCoord
	LocationName string
	Metadata     json.RawMessage

	// ScratchPath is the on-disk temp file backing Bytes, if any.
	// DeleteAfter requests it be removed once the item is processed,
	// regardless of whether processing succeeded.
	ScratchPath string
	DeleteAfter bool
}

// putter is the narrow capability the indexer needs from the store.
type putter interface {
	Put(ctx context.Context, p domain.Photo) (domain.PhotoId, error)
}

// Indexer drives one scraper's items through encode_image -> store.put,
// bounded by a fixed worker count, then triggers a rebuild.
type Indexer struct {
	store      putter
	embedder   embed.Embedder
	workers    int
	onBatchEnd func(ctx context.Context) error
	log        zerolog.Logger
}

// New returns an Indexer. workers bounds the number of concurrent
// encode_image calls; onBatchEnd is invoked once after every item in a
// Run has been processed (typically wired to the ANN index's Rebuild).
func New(store putter, embedder embed.Embedder, workers int, onBatchEnd func(ctx context.Context) error) *Indexer {
	if workers <= 0 {
		workers = 1
	}
	return &Indexer{store: store, embedder: embedder, workers: workers, onBatchEnd: onBatchEnd, log: logging.Component("indexer")}
}

// Run consumes items until the channel closes or ctx is cancelled,
// fanning encode_image calls out across the bounded worker pool and
// fanning writes back in through the store's own single-writer
// serialization. A single item's failure is logged and does not abort
// the run; Run itself only returns an error on context cancellation or
// when the end-of-batch callback fails.
func (ix *Indexer) Run(ctx context.Context, items <-chan Item) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(ix.workers))

	var acquireErr error
	for item := range items {
		item := item
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			ix.processItem(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Wrap("indexer.run", domain.CodeStoreUnavailable, err)
	}
	if acquireErr != nil {
		return acquireErr
	}

	if ix.onBatchEnd != nil {
		if err := ix.onBatchEnd(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) processItem(ctx context.Context, item Item) {
	defer ix.cleanupScratch(item)

	vec, err := ix.embedder.EncodeImage(ctx, item.Bytes)
	if err != nil {
		ix.log.Warn().Err(err).Str("source_ref", item.SourceRef).Msg("encode_image failed, skipping item")
		return
	}

	photo := domain.Photo{
		SourceRef:    item.SourceRef,
		ThumbnailRef: item.ThumbnailRef,
		TakenAt:      item.TakenAt,
		GPS:          item.GPS,
		LocationName: item.LocationName,
		Embedding:    vec,
		Metadata:     item.Metadata,
	}

	if _, err := ix.store.Put(ctx, photo); err != nil {
		ix.log.Warn().Err(err).Str("source_ref", item.SourceRef).Msg("store.put failed, skipping item")
	}
}

func (ix *Indexer) cleanupScratch(item Item) {
	if !item.DeleteAfter || item.ScratchPath == "" {
		return
	}
	if err := os.Remove(item.ScratchPath); err != nil && !os.IsNotExist(err) {
		ix.log.Warn().Err(err).Str("path", item.ScratchPath).Msg("failed to remove scratch file")
	}
}
