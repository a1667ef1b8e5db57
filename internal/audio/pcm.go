package audio

import (
	"encoding/binary"
	"math"
)

const (
	// SampleRate is the only rate the engine accepts.
	SampleRate = 16000

	BytesPerSample = 2
)

// DecodePCM16LE converts little-endian signed 16-bit PCM into float32 samples
// in [-1.0, 1.0). A trailing odd byte is dropped.
func DecodePCM16LE(b []byte) []float32 {
	n := len(b) / BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(b[2*i:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

// EncodePCM16LE is the inverse of DecodePCM16LE. Samples are clamped to the
// int16 range and rounded to the nearest step.
func EncodePCM16LE(samples []float32) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768.0)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
