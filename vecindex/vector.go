// CLAUDE:SUMMARY Vector codec and similarity math: little-endian float32 BLOBs, norms, cosine.
package vecindex

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Serialize encodes a vector as little-endian float32 bytes for BLOB storage.
func Serialize(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// Deserialize decodes a BLOB written by Serialize.
func Deserialize(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vecindex: blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Norm returns the Euclidean norm.
func Norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// CosineWithNorms computes cosine similarity given precomputed norms,
// avoiding the norm recomputation per candidate during a scan. Returns 0
// for zero vectors or mismatched dimensions.
func CosineWithNorms(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// Cosine computes cosine similarity between two vectors.
func Cosine(a, b []float32) float64 {
	return CosineWithNorms(a, b, Norm(a), Norm(b))
}

// Score maps cosine similarity to the 0..100 integer scale used
// throughout ranking. Negative similarity floors at 0: anti-correlated
// content is merely irrelevant, not punished below the scale.
func Score(cos float64) int {
	s := int(math.Round(cos * 100))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
