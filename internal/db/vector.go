package db

import (
	"encoding/binary"
	"math"
)

// VectorToBytes serializes []float32 into the little-endian binary form the
// FT vector index stores and FT.SEARCH expects for BLOB parameters.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToVector deserializes the binary vector form back to []float32.
// Returns nil if the input length is not a multiple of 4.
func BytesToVector(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
