// Package embed declares the vision-language embedding model contract
// the search engine and indexer depend on. The model itself (loading
// weights, running inference) is explicitly out of scope for this
// engine; only the pure-function contract lives here so the rest of
// the engine can be built and tested against it.
package embed

import "context"

// Embedder turns image bytes or free text into a unit-norm vector of
// the corpus's fixed dimension D. Implementations MUST return a
// unit-norm vector; the store and ANN index re-normalize defensively
// but do not treat that as license to skip normalization here.
type Embedder interface {
	EncodeImage(ctx context.Context, data []byte) ([]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
}
