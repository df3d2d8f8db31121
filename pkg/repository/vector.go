package repository

import (
	"encoding/binary"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

var ErrVectorDimension = goerr.New("vector dimension mismatch")

// EncodeVector serializes an embedding as little-endian float32 bytes
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector deserializes an embedding stored by EncodeVector
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, goerr.New("invalid vector blob length", goerr.V("len", len(data)))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// CosineDistance returns 1 - cosine similarity. Lower is more similar;
// identical non-zero vectors yield 0.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, goerr.Wrap(ErrVectorDimension, "cannot compare vectors",
			goerr.V("len_a", len(a)), goerr.V("len_b", len(b)))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1, nil
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
