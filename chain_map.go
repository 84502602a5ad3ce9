package primemap

import (
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// chainNode is a node of a bucket chain, owned by exactly one chain.
type chainNode[K ~string, V any] struct {
	key   K
	value V
	next  *chainNode[K, V]
}

// chain is the singly-linked list of entries hashed to one ChainMap bucket.
// The zero chain is empty.
type chain[K ~string, V any] struct {
	head   *chainNode[K, V]
	length int
}

// find returns the node holding key, or nil.
func (c *chain[K, V]) find(key K) *chainNode[K, V] {
	for n := c.head; n != nil; n = n.next {
		if n.key == key {
			return n
		}
	}
	return nil
}

// insert prepends a new node. The caller ensures key is not in the chain.
func (c *chain[K, V]) insert(key K, value V) {
	c.head = &chainNode[K, V]{key: key, value: value, next: c.head}
	c.length++
}

// remove unlinks the node holding key and reports whether one was found.
func (c *chain[K, V]) remove(key K) bool {
	for link := &c.head; *link != nil; link = &(*link).next {
		if (*link).key == key {
			*link = (*link).next
			c.length--
			return true
		}
	}
	return false
}

// ChainMap is a hash map using separate chaining.
//
// The bucket array holds a prime number of independent chains; an entry
// lives in chain hash(key) % capacity, and new entries are prepended to
// their chain. The table grows to the next prime >= 2*capacity before an
// insertion whenever the load factor has reached 1.
//
// The zero ChainMap is empty and ready for use with the default capacity and
// hash function. A ChainMap is not safe for concurrent use and must not be
// copied after first use.
type ChainMap[K ~string, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		buckets      []byte
		size         int
		keyHash      HashFunc
		totalGrowths uint32
		totalResizes uint32
	}{})%CacheLineSize) % CacheLineSize]byte

	buckets      array[chain[K, V]]
	size         int
	keyHash      HashFunc
	totalGrowths uint32
	totalResizes uint32
}

// NewChainMap creates a new ChainMap instance.
//
// Parameters:
//   - WithCapacity option for the initial capacity (default 11)
//   - WithHasher option for the key hash function (default XXHash)
func NewChainMap[K ~string, V any](options ...func(*MapConfig)) *ChainMap[K, V] {
	cfg := buildConfig(options)
	return &ChainMap[K, V]{
		buckets: makeArray[chain[K, V]](nextPrime(cfg.Capacity)),
		keyHash: cfg.KeyHash,
	}
}

// NewChainMapWithHasher creates a ChainMap with the given initial capacity
// and key hash function, which take precedence over options.
// A non-positive capacity or a nil keyHash selects the default.
func NewChainMapWithHasher[K ~string, V any](
	capacity int,
	keyHash HashFunc,
	options ...func(*MapConfig),
) *ChainMap[K, V] {
	opts := make([]func(*MapConfig), 0, len(options)+2)
	opts = append(opts, options...)
	opts = append(opts, WithCapacity(capacity), WithHasher(keyHash))
	return NewChainMap[K, V](opts...)
}

func (m *ChainMap[K, V]) lazyInit() {
	if m.buckets.Len() == 0 {
		m.buckets = makeArray[chain[K, V]](defaultCapacity)
	}
	if m.keyHash == nil {
		m.keyHash = XXHash
	}
}

// bucket returns the chain key hashes to, or nil for an unallocated table.
func (m *ChainMap[K, V]) bucket(key K) *chain[K, V] {
	if m.buckets.Len() == 0 {
		return nil
	}
	return m.buckets.At(bucketIndex(m.keyHash, string(key), m.buckets.Len()))
}

// Put inserts or updates a key-value pair. If the load factor is already 1
// or more, the table is first resized to the next prime >= 2*capacity.
func (m *ChainMap[K, V]) Put(key K, value V) {
	m.lazyInit()
	if m.TableLoad() >= chainMaxLoad {
		m.totalGrowths++
		m.ResizeTable(2 * m.buckets.Len())
	}

	c := m.bucket(key)
	if n := c.find(key); n != nil {
		n.value = value
		return
	}
	c.insert(key, value)
	m.size++
}

// Get returns the value stored under key.
func (m *ChainMap[K, V]) Get(key K) (value V, ok bool) {
	if c := m.bucket(key); c != nil {
		if n := c.find(key); n != nil {
			return n.value, true
		}
	}
	return
}

// ContainsKey reports whether key is present.
func (m *ChainMap[K, V]) ContainsKey(key K) bool {
	c := m.bucket(key)
	return c != nil && c.find(key) != nil
}

// Remove unlinks the node holding key. Removing an absent key is a no-op.
func (m *ChainMap[K, V]) Remove(key K) {
	if c := m.bucket(key); c != nil && c.remove(key) {
		m.size--
	}
}

// Size returns the number of entries.
func (m *ChainMap[K, V]) Size() int {
	return m.size
}

// Capacity returns the number of buckets.
func (m *ChainMap[K, V]) Capacity() int {
	return m.buckets.Len()
}

// EmptyBuckets returns the number of buckets with an empty chain.
func (m *ChainMap[K, V]) EmptyBuckets() int {
	n := 0
	for i := 0; i < m.buckets.Len(); i++ {
		if m.buckets.At(i).length == 0 {
			n++
		}
	}
	return n
}

// TableLoad returns Size / Capacity.
func (m *ChainMap[K, V]) TableLoad() float64 {
	return m.TableLoadAt(m.buckets.Len())
}

// TableLoadAt returns the load factor the current entries would have in a
// table of the given capacity. Non-positive capacities yield 0.
func (m *ChainMap[K, V]) TableLoadAt(capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(m.size) / float64(capacity)
}

// Clear replaces every chain with an empty one. The capacity is unchanged.
func (m *ChainMap[K, V]) Clear() {
	m.buckets.Reset()
	m.size = 0
}

// ResizeTable rebuilds the bucket array with newCapacity buckets, rounded up
// to a prime, and rehashes every entry in ascending bucket then chain order.
//
// Notes:
//   - Requests below 1 are ignored.
//   - While the entries would load the candidate capacity above 1, the
//     candidate advances to the next prime >= twice its value, so the load
//     factor invariant holds even for a too-small request.
func (m *ChainMap[K, V]) ResizeTable(newCapacity int) {
	if newCapacity < 1 {
		return
	}
	m.lazyInit()
	newCapacity = normalizeCapacity(newCapacity)
	for m.TableLoadAt(newCapacity) > chainMaxLoad {
		newCapacity = nextPrime(2 * newCapacity)
	}

	buckets := makeArray[chain[K, V]](newCapacity)
	for i := 0; i < m.buckets.Len(); i++ {
		for n := m.buckets.At(i).head; n != nil; n = n.next {
			buckets.At(bucketIndex(m.keyHash, string(n.key), newCapacity)).insert(n.key, n.value)
		}
	}
	m.buckets = buckets
	m.totalResizes++
}

// KeysAndValues returns every entry in ascending bucket then chain order.
func (m *ChainMap[K, V]) KeysAndValues() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.size)
	m.Range(func(key K, value V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return entries
}

// Range calls yield for every entry in ascending bucket then chain order
// until yield returns false.
//
// Notes:
//   - Values may be updated with Put during iteration. Inserting new keys or
//     removing keys while ranging has unspecified results.
func (m *ChainMap[K, V]) Range(yield func(key K, value V) bool) {
	for i := 0; i < m.buckets.Len(); i++ {
		for n := m.buckets.At(i).head; n != nil; n = n.next {
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// All is the iterator version of Range.
func (m *ChainMap[K, V]) All() func(yield func(K, V) bool) {
	return m.Range
}

// Keys is the iterator version for iterating over all keys.
func (m *ChainMap[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		m.Range(func(key K, _ V) bool {
			return yield(key)
		})
	}
}

// Values is the iterator version for iterating over all values.
func (m *ChainMap[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		m.Range(func(_ K, value V) bool {
			return yield(value)
		})
	}
}

// ToMap collect all entries and return a map[K]V
func (m *ChainMap[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.size)
	m.Range(func(key K, value V) bool {
		a[key] = value
		return true
	})
	return a
}

// FromMap puts every key-value pair of source into the map.
func (m *ChainMap[K, V]) FromMap(source map[K]V) {
	for k, v := range source {
		m.Put(k, v)
	}
}

// Clone returns a copy with the same capacity, hash function and chain
// order. Values are copied shallowly.
func (m *ChainMap[K, V]) Clone() *ChainMap[K, V] {
	clone := &ChainMap[K, V]{
		buckets: makeArray[chain[K, V]](m.buckets.Len()),
		size:    m.size,
		keyHash: m.keyHash,
	}
	for i := 0; i < m.buckets.Len(); i++ {
		src := m.buckets.At(i)
		dst := clone.buckets.At(i)
		link := &dst.head
		for n := src.head; n != nil; n = n.next {
			*link = &chainNode[K, V]{key: n.key, value: n.value}
			link = &(*link).next
		}
		dst.length = src.length
	}
	return clone
}

// String implement the formatting output interface fmt.Stringer
func (m *ChainMap[K, V]) String() string {
	a := make(map[K]V, min(m.size, stringLimit))
	m.Range(func(key K, value V) bool {
		a[key] = value
		return len(a) < stringLimit
	})
	return mapString("ChainMap", a)
}

// Dump lists every bucket as "index: chain", one per line, with the chain
// written head first.
func (m *ChainMap[K, V]) Dump() string {
	var sb strings.Builder
	for i := 0; i < m.buckets.Len(); i++ {
		fmt.Fprintf(&sb, "%d:", i)
		for n := m.buckets.At(i).head; n != nil; n = n.next {
			fmt.Fprintf(&sb, " -> (%v: %v)", n.key, n.value)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// MarshalJSON JSON serialization
func (m *ChainMap[K, V]) MarshalJSON() ([]byte, error) {
	return marshalMap(m.ToMap())
}

// UnmarshalJSON JSON deserialization. Decoded entries are added to the
// existing ones.
func (m *ChainMap[K, V]) UnmarshalJSON(data []byte) error {
	a, err := unmarshalMap[K, V](data)
	if err != nil {
		return err
	}
	m.FromMap(a)
	return nil
}

// Stats returns statistics for the ChainMap. It's an O(N) operation,
// so it should be used only for diagnostics or debugging purposes.
func (m *ChainMap[K, V]) Stats() *MapStats {
	stats := &MapStats{
		Capacity:     m.buckets.Len(),
		Size:         m.size,
		LoadFactor:   m.TableLoad(),
		MinChain:     math.MaxInt,
		TotalGrowths: m.totalGrowths,
		TotalResizes: m.totalResizes,
	}
	for i := 0; i < m.buckets.Len(); i++ {
		n := 0
		for node := m.buckets.At(i).head; node != nil; node = node.next {
			n++
		}
		stats.Counted += n
		if n == 0 {
			stats.EmptyBuckets++
		}
		stats.MinChain = min(stats.MinChain, n)
		stats.MaxChain = max(stats.MaxChain, n)
	}
	if stats.Capacity == 0 {
		stats.MinChain = 0
	}
	return stats
}
