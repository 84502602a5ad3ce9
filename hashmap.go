// Package primemap provides two single-goroutine hash maps keyed by strings,
// both sized to prime capacities: OpenMap resolves collisions with quadratic
// probing and tombstone deletion, ChainMap with separate chaining.
package primemap

import (
	"fmt"
	"strings"
)

const (
	// defaultCapacity is the capacity used when none (or a non-positive one)
	// is configured. It is already prime.
	defaultCapacity = 11

	// openMaxLoad is the load factor at which OpenMap grows before inserting.
	openMaxLoad = 0.5
	// chainMaxLoad is the load factor at which ChainMap grows before inserting.
	chainMaxLoad = 1.0

	// stringLimit bounds the number of entries rendered by String.
	stringLimit = 1024
)

// HashMap is the contract shared by OpenMap and ChainMap.
//
// Implementations are not safe for concurrent use; callers sharing a map
// across goroutines must provide their own locking.
type HashMap[K ~string, V any] interface {
	// Put inserts key or overwrites its value, growing the table first when
	// the load factor has reached the implementation's threshold.
	Put(key K, value V)
	// Get returns the value stored under key and whether it was found.
	Get(key K) (V, bool)
	ContainsKey(key K) bool
	// Remove deletes key; removing an absent key is a no-op.
	Remove(key K)
	Size() int
	Capacity() int
	// EmptyBuckets counts buckets holding no live entry.
	EmptyBuckets() int
	TableLoad() float64
	// Clear drops every entry and keeps the capacity.
	Clear()
	// ResizeTable rehashes every live entry into a table of newCapacity,
	// rounded up to a prime. Requests that cannot hold the current entries
	// are ignored.
	ResizeTable(newCapacity int)
	// KeysAndValues returns all live entries in ascending bucket order.
	KeysAndValues() []Entry[K, V]
}

var (
	_ HashMap[string, any] = (*OpenMap[string, any])(nil)
	_ HashMap[string, any] = (*ChainMap[string, any])(nil)
)

// Entry is a key-value pair returned by KeysAndValues and iterators.
type Entry[K ~string, V any] struct {
	Key   K
	Value V
}

// MapConfig defines configurable OpenMap and ChainMap options.
type MapConfig struct {
	Capacity int
	KeyHash  HashFunc
}

// WithCapacity sets the initial capacity, rounded up to the next prime.
// If capacity is zero or negative, the value is ignored.
func WithCapacity(capacity int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.Capacity = capacity
	}
}

// WithHasher sets the key hash function. nil keeps the default XXHash.
func WithHasher(keyHash HashFunc) func(*MapConfig) {
	return func(c *MapConfig) {
		c.KeyHash = keyHash
	}
}

// buildConfig applies options and fills in defaults.
func buildConfig(options []func(*MapConfig)) MapConfig {
	var cfg MapConfig
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultCapacity
	}
	if cfg.KeyHash == nil {
		cfg.KeyHash = XXHash
	}
	return cfg
}

// bucketIndex reduces a hash to a bucket index for the given capacity.
func bucketIndex(keyHash HashFunc, key string, capacity int) int {
	return int(keyHash(key) % uint64(capacity))
}

// mapString renders m the way fmt prints a Go map, renamed to name.
func mapString[K ~string, V any](name string, m map[K]V) string {
	return strings.Replace(fmt.Sprint(m), "map[", name+"[", 1)
}

// MapStats is OpenMap and ChainMap statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type MapStats struct {
	// Capacity is the number of buckets (slots for OpenMap, chains for ChainMap).
	Capacity int
	// Size is the number of live entries according to the size counter.
	Size int
	// Counted is the number of live entries found by walking the buckets.
	// It always equals Size unless the map is corrupted.
	Counted int
	// EmptyBuckets is the number of buckets holding no live entry.
	// For OpenMap this includes tombstones.
	EmptyBuckets int
	// Tombstones is the number of deleted OpenMap slots awaiting a resize.
	// Always zero for ChainMap.
	Tombstones int
	// LoadFactor is Size / Capacity.
	LoadFactor float64
	// MaxProbe is the longest probe sequence (number of slots visited)
	// needed to reach a live OpenMap entry. Always zero for ChainMap.
	MaxProbe int
	// MinChain is the shortest ChainMap chain. Always zero for OpenMap.
	MinChain int
	// MaxChain is the longest ChainMap chain. Always zero for OpenMap.
	MaxChain int
	// TotalGrowths is the number of times Put grew the table.
	TotalGrowths uint32
	// TotalResizes is the number of rehashes, including explicit ResizeTable calls.
	TotalResizes uint32
}

// ToString returns string representation of map stats.
func (s *MapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("MapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:     %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Size:         %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counted:      %d\n", s.Counted))
	sb.WriteString(fmt.Sprintf("EmptyBuckets: %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Tombstones:   %d\n", s.Tombstones))
	sb.WriteString(fmt.Sprintf("LoadFactor:   %.4f\n", s.LoadFactor))
	sb.WriteString(fmt.Sprintf("MaxProbe:     %d\n", s.MaxProbe))
	sb.WriteString(fmt.Sprintf("MinChain:     %d\n", s.MinChain))
	sb.WriteString(fmt.Sprintf("MaxChain:     %d\n", s.MaxChain))
	sb.WriteString(fmt.Sprintf("TotalGrowths: %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalResizes: %d\n", s.TotalResizes))
	sb.WriteString("}\n")
	return sb.String()
}
