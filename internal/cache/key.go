package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Key derives a stable file-safe key from a namespace and a float series.
// Identical inputs always yield the same key; any bit difference in a value
// yields a different one.
func Key(namespace string, values []float64) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})

	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
