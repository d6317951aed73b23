package domain

import "encoding/json"

// PhotoId identifies a photo, stable within one corpus.
type PhotoId int64

// GPSCoord is a full latitude/longitude pair. The engine never allows a
// half-present coordinate: both fields are set, or the pointer is nil.
type GPSCoord struct {
	Lat float64
	Lon float64
}

// Photo is a stored photo record: the source reference, optional
// capture time and location, its unit-norm embedding, and opaque
// metadata passthrough.
type Photo struct {
	ID           PhotoId
	SourceRef    string
	ThumbnailRef string
	UploadedAt   string // RFC 3339; set by the store on insert
	TakenAt      *string
	GPS          *GPSCoord
	LocationName string
	Embedding    []float32
	Metadata     json.RawMessage
}

// FaceRecord is one detected face on a photo. Only PersonName is
// consumed by the core, as a filter predicate.
type FaceRecord struct {
	ImageID    PhotoId
	BBox       json.RawMessage
	Encoding   []float32
	PersonName string
	Confidence float64
}

// TimeRange bounds taken_at inclusively at Start and End when set.
type TimeRange struct {
	Start *string
	End   *string
}

// GeoTarget is a resolved named-place center with a search radius.
type GeoTarget struct {
	Lat      float64
	Lon      float64
	RadiusKM float64
}

// LocationQuery is the location clause of a QueryPlan: the candidate
// name variants (native + romanized + enclosing region) and, if the
// geocoder resolved one of them, its coordinates.
type LocationQuery struct {
	Names  []string
	Coords *GeoTarget
}

// QueryPlan is the structured intermediate between a free-text
// utterance and the search engine: what the parser lowers an
// utterance into, and what the search engine consumes.
type QueryPlan struct {
	TimeRange  TimeRange
	Location   *LocationQuery
	People     []string
	SearchText string
	Keywords   []string
}

// SearchResult is one enriched hit returned to the caller.
type SearchResult struct {
	ID           PhotoId
	SourceRef    string
	TakenAt      *string
	LocationName string
	GPS          *GPSCoord
	Similarity   float64
	Metadata     json.RawMessage
}

// ScoredID pairs a PhotoId with a similarity score, the unit of
// exchange between the ANN index and its callers.
type ScoredID struct {
	ID    PhotoId
	Score float64
}
