// Package encoding converts between in-memory float32 vectors and the
// raw little-endian byte layout the embedding store persists. No length
// prefix is stored alongside the vector: the corpus's dimension D is
// fixed and recorded once in the store's configuration.
package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeVector writes vector as exactly 4*len(vector) little-endian
// float32 bytes.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, fmt.Errorf("encoding: nil vector")
	}

	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// DecodeVector reads a little-endian float32 vector back out of data.
// It returns an error if data's length is not a multiple of 4, or if
// dim is non-zero and the decoded length does not equal it, the
// CorruptEmbedding condition the embedding store's read path must
// detect.
func DecodeVector(data []byte, dim int) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("encoding: embedding byte length %d not a multiple of 4", len(data))
	}
	n := len(data) / 4
	if dim > 0 && n != dim {
		return nil, fmt.Errorf("encoding: embedding length %d, want %d", n, dim)
	}

	out := make([]float32, n)
	r := bytes.NewReader(data)
	for i := 0; i < n; i++ {
		var bits uint32
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return nil, fmt.Errorf("encoding: decode vector element %d: %w", i, err)
		}
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// L2Norm returns the Euclidean norm of v.
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsUnitNorm reports whether v's L2 norm is within tol of 1.0, the
// invariant every stored embedding must satisfy.
func IsUnitNorm(v []float32, tol float64) bool {
	n := L2Norm(v)
	return math.Abs(n-1.0) <= tol
}

// Normalize returns a defensively L2-normalized copy of v. Used by the
// ANN index builder, which re-normalizes on every rebuild rather than
// trusting the stored invariant blindly.
func Normalize(v []float32) []float32 {
	n := L2Norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// CosineSimilarity computes the inner product of two unit-norm vectors,
// which equals their cosine similarity. Vectors of mismatched length
// yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
