package embedding

import (
	"encoding/binary"
	"math"
)

// VectorToBlob converts a float32 slice to a little-endian BLOB
func VectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// BlobToVector converts a BLOB back to a float32 slice
func BlobToVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// Norm computes the L2 norm
func Norm(vector []float32) float64 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// DotProduct computes the dot product of two vectors
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for mismatched dimensions or zero-norm inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	normA := Norm(a)
	normB := Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}

	return DotProduct(a, b) / (normA * normB)
}

// Normalize returns a unit-length copy of the vector
func Normalize(vector []float32) []float32 {
	norm := Norm(vector)
	if norm == 0 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
