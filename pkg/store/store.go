// Package store implements the embedding store: a durable key-value
// mapping from PhotoId to {embedding, metadata}, backed by an embedded
// SQLite database (pure-Go driver, no CGO). It owns schema creation and
// the single writer goroutine that serializes all writes; reads use the
// database's own connection pool directly.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jiyeon-yoon/picta-prototype/internal/encoding"
	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// writeDepth bounds the writer goroutine's request channel, giving the
// indexer's fan-in stage a fixed amount of back-pressure headroom.
const writeDepth = 128

// Store is the embedded-SQLite-backed embedding store.
type Store struct {
	db   *sql.DB
	path string

	mu     sync.RWMutex
	dim    int // 0 until the first successful insert fixes it
	closed bool

	writeCh chan writeRequest
	wg      sync.WaitGroup

	log zerolog.Logger
}

// New opens (creating if necessary) the SQLite file at path as a
// corpus's embedding store. dim of 0 auto-detects the corpus's vector
// dimension from the first successful Put.
func New(path string, dim int) (*Store, error) {
	if path == "" {
		return nil, domain.Wrap("store.new", domain.CodeStoreUnavailable, fmt.Errorf("empty corpus path"))
	}
	if dim < 0 {
		return nil, domain.Wrap("store.new", domain.CodeDimensionMismatch, fmt.Errorf("negative vector dimension"))
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, domain.Wrap("store.new", domain.CodeStoreUnavailable, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Hour)

	s := &Store{
		db:      db,
		path:    path,
		dim:     dim,
		writeCh: make(chan writeRequest, writeDepth),
		log:     logging.Component("store"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, domain.Wrap("store.new", domain.CodeStoreUnavailable, fmt.Errorf("create schema: %w", err))
	}

	if dim == 0 {
		if existing, err := s.detectDim(ctx); err == nil && existing > 0 {
			s.dim = existing
		}
	}

	s.wg.Add(1)
	go s.runWriter()

	return s, nil
}

func (s *Store) detectDim(ctx context.Context) (int, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT embedding FROM images LIMIT 1").Scan(&blob)
	if err != nil {
		return 0, err
	}
	return len(blob) / 4, nil
}

// Dim returns the corpus's fixed vector dimension, or 0 if no photo has
// been inserted yet.
func (s *Store) Dim() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Close stops the writer goroutine and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.writeCh)
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) checkOpen(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Wrap(op, domain.CodeStoreUnavailable, fmt.Errorf("store is closed"))
	}
	return nil
}

// --- writer goroutine -------------------------------------------------

type writeRequest struct {
	run  func(ctx context.Context) (any, error)
	resp chan writeResult
}

type writeResult struct {
	val any
	err error
}

func (s *Store) runWriter() {
	defer s.wg.Done()
	for req := range s.writeCh {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		val, err := req.run(ctx)
		cancel()
		req.resp <- writeResult{val: val, err: err}
	}
}

// submitWrite serializes fn through the single writer goroutine and
// waits for its result, or for ctx to be cancelled first.
func (s *Store) submitWrite(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := s.checkOpen("store.write"); err != nil {
		return nil, err
	}

	resp := make(chan writeResult, 1)
	select {
	case s.writeCh <- writeRequest{run: fn, resp: resp}:
	case <-ctx.Done():
		return nil, domain.Wrap("store.write", domain.CodeStoreUnavailable, ctx.Err())
	}

	select {
	case r := <-resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, domain.Wrap("store.write", domain.CodeStoreUnavailable, ctx.Err())
	}
}

// --- Put / PutFace -----------------------------------------------------

// Put inserts or replaces (keyed by sourceRef) a photo's embedding and
// metadata, returning its PhotoId.
func (s *Store) Put(ctx context.Context, p domain.Photo) (domain.PhotoId, error) {
	s.mu.RLock()
	dim := s.dim
	s.mu.RUnlock()

	if dim != 0 && len(p.Embedding) != dim {
		return 0, domain.Wrap("store.put", domain.CodeDimensionMismatch,
			fmt.Errorf("embedding has %d dims, corpus is %d", len(p.Embedding), dim))
	}
	if !encoding.IsUnitNorm(p.Embedding, 1e-3) {
		s.log.Warn().Str("source_ref", p.SourceRef).Msg("embedding is not unit-norm, storing anyway")
	}

	vecBytes, err := encoding.EncodeVector(p.Embedding)
	if err != nil {
		return 0, domain.Wrap("store.put", domain.CodeDimensionMismatch, err)
	}

	metaJSON := p.Metadata
	if metaJSON == nil {
		metaJSON = json.RawMessage("{}")
	}

	uploadedAt := p.UploadedAt
	if uploadedAt == "" {
		uploadedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result, err := s.submitWrite(ctx, func(ctx context.Context) (any, error) {
		var latPtr, lonPtr any
		if p.GPS != nil {
			latPtr, lonPtr = p.GPS.Lat, p.GPS.Lon
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO images (source_ref, thumbnail_ref, uploaded_at, taken_at, gps_lat, gps_lon, location_name, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_ref) DO UPDATE SET
				thumbnail_ref = excluded.thumbnail_ref,
				uploaded_at   = excluded.uploaded_at,
				taken_at      = excluded.taken_at,
				gps_lat       = excluded.gps_lat,
				gps_lon       = excluded.gps_lon,
				location_name = excluded.location_name,
				embedding     = excluded.embedding,
				metadata      = excluded.metadata
		`, p.SourceRef, p.ThumbnailRef, uploadedAt, p.TakenAt, latPtr, lonPtr, p.LocationName, vecBytes, string(metaJSON))
		if err != nil {
			return nil, err
		}

		// LastInsertId is stale when the upsert takes the UPDATE path, so
		// resolve the id by source_ref in both cases.
		var id int64
		if err := s.db.QueryRowContext(ctx, `SELECT id FROM images WHERE source_ref = ?`, p.SourceRef).Scan(&id); err != nil {
			return nil, err
		}

		if dim == 0 {
			s.mu.Lock()
			if s.dim == 0 {
				s.dim = len(p.Embedding)
			}
			s.mu.Unlock()
		}
		return id, nil
	})
	if err != nil {
		return 0, domain.Wrap("store.put", domain.CodeStoreUnavailable, err)
	}
	return domain.PhotoId(result.(int64)), nil
}

// PutFace records a detected face for imageID.
func (s *Store) PutFace(ctx context.Context, imageID domain.PhotoId, face domain.FaceRecord) error {
	var encBytes []byte
	if face.Encoding != nil {
		b, err := encoding.EncodeVector(face.Encoding)
		if err != nil {
			return domain.Wrap("store.put_face", domain.CodeDimensionMismatch, err)
		}
		encBytes = b
	}
	bbox := face.BBox
	if bbox == nil {
		bbox = json.RawMessage("{}")
	}

	_, err := s.submitWrite(ctx, func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO faces (image_id, bbox, encoding, person_name, confidence)
			VALUES (?, ?, ?, ?, ?)
		`, int64(imageID), string(bbox), encBytes, face.PersonName, face.Confidence)
		return nil, err
	})
	if err != nil {
		return domain.Wrap("store.put_face", domain.CodeStoreUnavailable, err)
	}
	return nil
}

// RecordSearch appends one entry to the search_history table, fire and
// forget from the search engine's perspective.
func (s *Store) RecordSearch(ctx context.Context, query string, results json.RawMessage) error {
	_, err := s.submitWrite(ctx, func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx, `INSERT INTO search_history (query, results, ts) VALUES (?, ?, ?)`,
			query, string(results), time.Now().UTC().Format(time.RFC3339))
		return nil, err
	})
	if err != nil {
		return domain.Wrap("store.record_search", domain.CodeStoreUnavailable, err)
	}
	return nil
}
