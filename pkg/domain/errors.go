// Package domain holds the types shared across every component of the
// search and recommendation engine: the photo record, the query plan the
// parser produces, the result the search engine returns, and the error
// taxonomy every component wraps its failures in.
package domain

import (
	"errors"
	"fmt"
)

// Code classifies an error into one of the taxonomy entries from the
// engine's error handling design. Callers should branch on Code (via
// errors.Is against the matching sentinel below), not on the formatted
// message.
type Code string

const (
	// CodeInvalidQuery marks an empty utterance or a malformed plan.
	CodeInvalidQuery Code = "invalid_query"
	// CodeStoreUnavailable marks a disk/DB error; fatal for the current
	// call, not the process.
	CodeStoreUnavailable Code = "store_unavailable"
	// CodeCorruptEmbedding marks a row skipped at rebuild time.
	CodeCorruptEmbedding Code = "corrupt_embedding"
	// CodeModelUnavailable marks an embedder failure or absence; fatal
	// for semantic branches.
	CodeModelUnavailable Code = "model_unavailable"
	// CodeUpstreamTimeout marks an LLM or geocoder deadline exceeded;
	// recovered via the documented fallback.
	CodeUpstreamTimeout Code = "upstream_timeout"
	// CodeNotFound marks an unknown PhotoId.
	CodeNotFound Code = "not_found"
	// CodeDimensionMismatch marks an embedding of the wrong length.
	CodeDimensionMismatch Code = "dimension_mismatch"
)

// Sentinel errors for errors.Is comparisons, one per taxonomy entry.
var (
	ErrInvalidQuery      = errors.New("invalid query")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrCorruptEmbedding  = errors.New("corrupt embedding")
	ErrModelUnavailable  = errors.New("embedding model unavailable")
	ErrUpstreamTimeout   = errors.New("upstream call timed out")
	ErrNotFound          = errors.New("not found")
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

func sentinelFor(code Code) error {
	switch code {
	case CodeInvalidQuery:
		return ErrInvalidQuery
	case CodeStoreUnavailable:
		return ErrStoreUnavailable
	case CodeCorruptEmbedding:
		return ErrCorruptEmbedding
	case CodeModelUnavailable:
		return ErrModelUnavailable
	case CodeUpstreamTimeout:
		return ErrUpstreamTimeout
	case CodeNotFound:
		return ErrNotFound
	case CodeDimensionMismatch:
		return ErrDimensionMismatch
	default:
		return nil
	}
}

// OpError wraps an underlying error with the operation name and taxonomy
// code that produced it, so the core never lets an unwrapped low-level
// error escape to a caller.
type OpError struct {
	Op   string
	Code Code
	Err  error
}

func (e *OpError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("picta: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("picta: %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, domain.ErrNotFound) succeed both against the
// wrapped cause and against the taxonomy sentinel for e.Code, so callers
// can match on either the specific cause or the general class.
func (e *OpError) Is(target error) bool {
	if errors.Is(e.Err, target) {
		return true
	}
	return errors.Is(sentinelFor(e.Code), target)
}

// Wrap attaches an operation name and taxonomy code to err. Returns nil
// when err is nil so call sites can write `return Wrap(op, code, err)`
// unconditionally after an `if err != nil` guard is known to have passed,
// or defensively when it hasn't.
func Wrap(op string, code Code, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Code: code, Err: err}
}
