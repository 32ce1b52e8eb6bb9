package embedding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedVector reports stored bytes that cannot be a float32 vector.
var ErrMalformedVector = errors.New("embedding: malformed vector bytes")

// EncodeVector packs a vector into little-endian float32 bytes for storage.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes. A byte count that is
// not a multiple of 4 yields ErrMalformedVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedVector, len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// Cosine returns the cosine similarity of two equal-length vectors, or 0
// when either has zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
