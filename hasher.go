package primemap

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/maphash"
)

// HashFunc maps a key to a non-negative integer. It must return the same
// value for equal keys across calls for the lifetime of a map.
type HashFunc func(key string) uint64

// XXHash is the default HashFunc, backed by xxHash64.
func XXHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// NewMapHasher returns a HashFunc using Go's built-in map hasher with a
// random seed chosen once per call. Maps sharing the returned
// function hash identically; separate calls produce unrelated functions.
func NewMapHasher() HashFunc {
	h := maphash.NewHasher[string]()
	return func(key string) uint64 {
		return h.Hash(key)
	}
}

// SumHash adds up the byte values of the key.
// Anagrams collide, which makes it handy for exercising collision handling.
func SumHash(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h += uint64(key[i])
	}
	return h
}

// WeightedSumHash adds up the byte values of the key, each multiplied by its
// 1-based position.
func WeightedSumHash(key string) uint64 {
	var h uint64
	for i := 0; i < len(key); i++ {
		h += uint64(i+1) * uint64(key[i])
	}
	return h
}
