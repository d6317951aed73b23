package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jiyeon-yoon/picta-prototype/internal/encoding"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

// Get returns the photo with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id domain.PhotoId) (*domain.Photo, error) {
	if err := s.checkOpen("store.get"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_ref, thumbnail_ref, uploaded_at, taken_at, gps_lat, gps_lon, location_name, embedding, metadata
		FROM images WHERE id = ?`, int64(id))

	p, _, err := scanPhotoRow(row, s.Dim())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.Wrap("store.get", domain.CodeNotFound, fmt.Errorf("photo %d", id))
		}
		return nil, domain.Wrap("store.get", domain.CodeStoreUnavailable, err)
	}
	return p, nil
}

// Count returns the number of stored photos.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if err := s.checkOpen("store.count"); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n); err != nil {
		return 0, domain.Wrap("store.count", domain.CodeStoreUnavailable, err)
	}
	return n, nil
}

// ScanRow is one item yielded by Scan: either a valid Photo, or (when
// Err is CorruptEmbedding) a row the caller, typically the ANN index
// builder, must skip and log once.
type ScanRow struct {
	Photo *domain.Photo
	Err   error
}

// Scan streams every stored photo for a full index rebuild. The
// returned channel is closed when the scan completes or ctx is
// cancelled; rows with a wrong-length embedding are still delivered,
// tagged with a CorruptEmbedding error, so the caller can log and skip
// them without losing count of what was scanned.
func (s *Store) Scan(ctx context.Context) (<-chan ScanRow, error) {
	if err := s.checkOpen("store.scan"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_ref, thumbnail_ref, uploaded_at, taken_at, gps_lat, gps_lon, location_name, embedding, metadata
		FROM images`)
	if err != nil {
		return nil, domain.Wrap("store.scan", domain.CodeStoreUnavailable, err)
	}

	out := make(chan ScanRow, 64)
	dim := s.Dim()
	go func() {
		defer close(out)
		defer rows.Close()
		for rows.Next() {
			p, corrupt, err := scanPhotoRow(rows, dim)
			if err != nil {
				select {
				case out <- ScanRow{Err: domain.Wrap("store.scan", domain.CodeStoreUnavailable, err)}:
				case <-ctx.Done():
					return
				}
				continue
			}
			if corrupt {
				select {
				case out <- ScanRow{Photo: p, Err: domain.Wrap("store.scan", domain.CodeCorruptEmbedding, fmt.Errorf("photo %d: embedding length mismatch", p.ID))}:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case out <- ScanRow{Photo: p}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhotoRow(r rowScanner, dim int) (*domain.Photo, bool, error) {
	var (
		id                                        int64
		sourceRef, uploadedAt                     string
		thumbnailRef, takenAt, locationName, meta sql.NullString
		gpsLat, gpsLon                            sql.NullFloat64
		embeddingBytes                            []byte
	)

	if err := r.Scan(&id, &sourceRef, &thumbnailRef, &uploadedAt, &takenAt, &gpsLat, &gpsLon, &locationName, &embeddingBytes, &meta); err != nil {
		return nil, false, err
	}

	p := &domain.Photo{
		ID:           domain.PhotoId(id),
		SourceRef:    sourceRef,
		UploadedAt:   uploadedAt,
		LocationName: locationName.String,
	}
	if thumbnailRef.Valid {
		p.ThumbnailRef = thumbnailRef.String
	}
	if takenAt.Valid {
		t := takenAt.String
		p.TakenAt = &t
	}
	if gpsLat.Valid && gpsLon.Valid {
		p.GPS = &domain.GPSCoord{Lat: gpsLat.Float64, Lon: gpsLon.Float64}
	}
	if meta.Valid && meta.String != "" {
		p.Metadata = json.RawMessage(meta.String)
	}

	vec, err := encoding.DecodeVector(embeddingBytes, 0)
	if err != nil {
		return p, true, nil
	}
	if dim > 0 && len(vec) != dim {
		return p, true, nil
	}
	p.Embedding = vec
	return p, false, nil
}

// PersonsFor returns the set of person names attached to imageID's
// faces.
func (s *Store) PersonsFor(ctx context.Context, imageID domain.PhotoId) (map[string]bool, error) {
	if err := s.checkOpen("store.persons_for"); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT person_name FROM faces WHERE image_id = ? AND person_name IS NOT NULL AND person_name != ''`, int64(imageID))
	if err != nil {
		return nil, domain.Wrap("store.persons_for", domain.CodeStoreUnavailable, err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.Wrap("store.persons_for", domain.CodeStoreUnavailable, err)
		}
		out[name] = true
	}
	return out, rows.Err()
}
