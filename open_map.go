package primemap

import (
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// slotState tags an OpenMap slot. The zero value is slotEmpty so a freshly
// allocated or cleared slot array needs no initialization.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotLive
	slotTombstone
)

// openSlot is one cell of the OpenMap slot array. key and value are only
// meaningful while state is slotLive; a tombstone keeps its key for Dump.
type openSlot[K ~string, V any] struct {
	key   K
	value V
	state slotState
}

// OpenMap is a hash map using open addressing with quadratic probing.
//
// All entries live directly in a prime-sized slot array. A key hashing to
// base b is looked up at (b + i*i) % capacity for i = 0, 1, 2, ...
// Deleted entries become tombstones: they stop nothing during lookups and are
// reused by later insertions, and are dropped for good by the next resize.
// The table grows to the next prime >= 2*capacity before an insertion
// whenever the load factor has reached 1/2, which keeps a reusable slot
// within reach of every probe sequence.
//
// The zero OpenMap is empty and ready for use with the default capacity and
// hash function. An OpenMap is not safe for concurrent use and must not be
// copied after first use.
type OpenMap[K ~string, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		slots        []byte
		size         int
		keyHash      HashFunc
		totalGrowths uint32
		totalResizes uint32
	}{})%CacheLineSize) % CacheLineSize]byte

	slots        array[openSlot[K, V]]
	size         int
	keyHash      HashFunc
	totalGrowths uint32
	totalResizes uint32
}

// NewOpenMap creates a new OpenMap instance.
//
// Parameters:
//   - WithCapacity option for the initial capacity (default 11)
//   - WithHasher option for the key hash function (default XXHash)
func NewOpenMap[K ~string, V any](options ...func(*MapConfig)) *OpenMap[K, V] {
	cfg := buildConfig(options)
	return &OpenMap[K, V]{
		slots:   makeArray[openSlot[K, V]](nextPrime(cfg.Capacity)),
		keyHash: cfg.KeyHash,
	}
}

// NewOpenMapWithHasher creates an OpenMap with the given initial capacity and
// key hash function, which take precedence over options.
// A non-positive capacity or a nil keyHash selects the default.
func NewOpenMapWithHasher[K ~string, V any](
	capacity int,
	keyHash HashFunc,
	options ...func(*MapConfig),
) *OpenMap[K, V] {
	opts := make([]func(*MapConfig), 0, len(options)+2)
	opts = append(opts, options...)
	opts = append(opts, WithCapacity(capacity), WithHasher(keyHash))
	return NewOpenMap[K, V](opts...)
}

func (m *OpenMap[K, V]) lazyInit() {
	if m.slots.Len() == 0 {
		m.slots = makeArray[openSlot[K, V]](defaultCapacity)
	}
	if m.keyHash == nil {
		m.keyHash = XXHash
	}
}

// probe walks the quadratic probe sequence of key. It returns the index of
// the live slot holding key (or -1) and the first empty or tombstone slot
// seen on the way (or -1). The walk stops at the first empty slot, at a live
// match, or after capacity steps.
func (m *OpenMap[K, V]) probe(key K) (found, free int) {
	found, free = -1, -1
	capacity := m.slots.Len()
	if capacity == 0 {
		return
	}
	idx := bucketIndex(m.keyHash, string(key), capacity)
	for i := 0; i < capacity; i++ {
		s := m.slots.At(idx)
		switch s.state {
		case slotEmpty:
			if free < 0 {
				free = idx
			}
			return
		case slotTombstone:
			if free < 0 {
				free = idx
			}
		case slotLive:
			if s.key == key {
				found = idx
				return
			}
		}
		// (b + (i+1)^2) - (b + i^2) == 2i + 1
		idx = (idx + 2*i + 1) % capacity
	}
	return
}

// Put inserts or updates a key-value pair. If the load factor is already
// 1/2 or more, the table is first resized to the next prime >= 2*capacity.
//
// An existing key is updated in place even when tombstones precede it on its
// probe sequence; a new key takes the first tombstone or empty slot.
func (m *OpenMap[K, V]) Put(key K, value V) {
	m.lazyInit()
	if m.TableLoad() >= openMaxLoad {
		m.totalGrowths++
		m.ResizeTable(2 * m.slots.Len())
	}

	found, free := m.probe(key)
	if found >= 0 {
		m.slots.At(found).value = value
		return
	}
	// free is always found while the load factor stays below 1/2: the first
	// (capacity+1)/2 quadratic probes of a prime capacity are distinct.
	if free >= 0 {
		m.slots.Set(free, openSlot[K, V]{key: key, value: value, state: slotLive})
		m.size++
	}
}

// Get returns the value stored under key. Probing skips tombstones and stops
// at the first empty slot.
func (m *OpenMap[K, V]) Get(key K) (value V, ok bool) {
	if found, _ := m.probe(key); found >= 0 {
		return m.slots.At(found).value, true
	}
	return
}

// ContainsKey reports whether key is present.
func (m *OpenMap[K, V]) ContainsKey(key K) bool {
	found, _ := m.probe(key)
	return found >= 0
}

// Remove turns the slot holding key into a tombstone.
// Removing an absent key is a no-op.
func (m *OpenMap[K, V]) Remove(key K) {
	found, _ := m.probe(key)
	if found < 0 {
		return
	}
	s := m.slots.At(found)
	s.state = slotTombstone
	s.value = *new(V)
	m.size--
}

// Size returns the number of live entries. Tombstones are not counted.
func (m *OpenMap[K, V]) Size() int {
	return m.size
}

// Capacity returns the number of slots.
func (m *OpenMap[K, V]) Capacity() int {
	return m.slots.Len()
}

// EmptyBuckets returns the number of slots that are empty or tombstones.
func (m *OpenMap[K, V]) EmptyBuckets() int {
	n := 0
	for i := 0; i < m.slots.Len(); i++ {
		if m.slots.At(i).state != slotLive {
			n++
		}
	}
	return n
}

// TableLoad returns Size / Capacity.
func (m *OpenMap[K, V]) TableLoad() float64 {
	if m.slots.Len() == 0 {
		return 0
	}
	return float64(m.size) / float64(m.slots.Len())
}

// Clear empties every slot, tombstones included. The capacity is unchanged.
func (m *OpenMap[K, V]) Clear() {
	m.slots.Reset()
	m.size = 0
}

// ResizeTable rebuilds the slot array with newCapacity slots, rounded up to
// a prime, and reinserts every live entry in ascending slot order.
// Tombstones are dropped.
//
// Notes:
//   - Requests below Size (or below 1) are ignored.
//   - Reinsertion goes through Put, so a capacity too small to keep the load
//     factor below 1/2 grows again while entries are copied.
func (m *OpenMap[K, V]) ResizeTable(newCapacity int) {
	if newCapacity < 1 || newCapacity < m.size {
		return
	}
	m.lazyInit()
	newCapacity = normalizeCapacity(newCapacity)

	old := m.slots
	m.slots = makeArray[openSlot[K, V]](newCapacity)
	m.size = 0
	m.totalResizes++
	for i := 0; i < old.Len(); i++ {
		if s := old.At(i); s.state == slotLive {
			m.Put(s.key, s.value)
		}
	}
}

// KeysAndValues returns the live entries in ascending slot order.
func (m *OpenMap[K, V]) KeysAndValues() []Entry[K, V] {
	entries := make([]Entry[K, V], 0, m.size)
	m.Range(func(key K, value V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Value: value})
		return true
	})
	return entries
}

// Range calls yield for every live entry in ascending slot order until
// yield returns false.
func (m *OpenMap[K, V]) Range(yield func(key K, value V) bool) {
	for i := 0; i < m.slots.Len(); i++ {
		if s := m.slots.At(i); s.state == slotLive {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// All is the iterator version of Range.
func (m *OpenMap[K, V]) All() func(yield func(K, V) bool) {
	return m.Range
}

// Keys is the iterator version for iterating over all keys.
func (m *OpenMap[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		m.Range(func(key K, _ V) bool {
			return yield(key)
		})
	}
}

// Values is the iterator version for iterating over all values.
func (m *OpenMap[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		m.Range(func(_ K, value V) bool {
			return yield(value)
		})
	}
}

// Iter returns a new cursor positioned before the first live slot.
// Each call yields an independent cursor, so several iterations may run
// side by side.
func (m *OpenMap[K, V]) Iter() *OpenMapIterator[K, V] {
	return &OpenMapIterator[K, V]{slots: m.slots, index: -1}
}

// ToMap collect all entries and return a map[K]V
func (m *OpenMap[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.size)
	m.Range(func(key K, value V) bool {
		a[key] = value
		return true
	})
	return a
}

// FromMap puts every key-value pair of source into the map.
func (m *OpenMap[K, V]) FromMap(source map[K]V) {
	for k, v := range source {
		m.Put(k, v)
	}
}

// Clone returns a copy with the same capacity, hash function and slot
// layout, tombstones included. Values are copied shallowly.
func (m *OpenMap[K, V]) Clone() *OpenMap[K, V] {
	return &OpenMap[K, V]{
		slots:   m.slots.clone(),
		size:    m.size,
		keyHash: m.keyHash,
	}
}

// String implement the formatting output interface fmt.Stringer
func (m *OpenMap[K, V]) String() string {
	a := make(map[K]V, min(m.size, stringLimit))
	m.Range(func(key K, value V) bool {
		a[key] = value
		return len(a) < stringLimit
	})
	return mapString("OpenMap", a)
}

// Dump lists every slot as "index: contents", one per line.
func (m *OpenMap[K, V]) Dump() string {
	var sb strings.Builder
	for i := 0; i < m.slots.Len(); i++ {
		s := m.slots.At(i)
		switch s.state {
		case slotEmpty:
			fmt.Fprintf(&sb, "%d: <empty>\n", i)
		case slotLive:
			fmt.Fprintf(&sb, "%d: %v=%v\n", i, s.key, s.value)
		case slotTombstone:
			fmt.Fprintf(&sb, "%d: %v <tombstone>\n", i, s.key)
		}
	}
	return sb.String()
}

// MarshalJSON JSON serialization
func (m *OpenMap[K, V]) MarshalJSON() ([]byte, error) {
	return marshalMap(m.ToMap())
}

// UnmarshalJSON JSON deserialization. Decoded entries are added to the
// existing ones.
func (m *OpenMap[K, V]) UnmarshalJSON(data []byte) error {
	a, err := unmarshalMap[K, V](data)
	if err != nil {
		return err
	}
	m.FromMap(a)
	return nil
}

// Stats returns statistics for the OpenMap. It's an O(N) operation
// that recomputes probe lengths, so it should be used only for
// diagnostics or debugging purposes.
func (m *OpenMap[K, V]) Stats() *MapStats {
	stats := &MapStats{
		Capacity:     m.slots.Len(),
		Size:         m.size,
		LoadFactor:   m.TableLoad(),
		TotalGrowths: m.totalGrowths,
		TotalResizes: m.totalResizes,
	}
	for i := 0; i < m.slots.Len(); i++ {
		s := m.slots.At(i)
		switch s.state {
		case slotLive:
			stats.Counted++
			stats.MaxProbe = max(stats.MaxProbe, m.probeLen(s.key, i))
		case slotTombstone:
			stats.Tombstones++
			stats.EmptyBuckets++
		default:
			stats.EmptyBuckets++
		}
	}
	return stats
}

// probeLen returns how many slots are visited to reach target from the base
// slot of key, or math.MaxInt if target is not on the probe sequence.
func (m *OpenMap[K, V]) probeLen(key K, target int) int {
	capacity := m.slots.Len()
	idx := bucketIndex(m.keyHash, string(key), capacity)
	for i := 0; i < capacity; i++ {
		if idx == target {
			return i + 1
		}
		idx = (idx + 2*i + 1) % capacity
	}
	return math.MaxInt
}

// OpenMapIterator is a single-pass cursor over the live slots of an OpenMap,
// in ascending slot order. Tombstones and empty slots are skipped.
//
// Notes:
//   - The cursor keeps the slot array that was current when Iter was called.
//     Entries updated in place are observed; after a resize the cursor keeps
//     walking the old array.
//   - Clear empties that array, so the cursor sees no further entries.
type OpenMapIterator[K ~string, V any] struct {
	slots array[openSlot[K, V]]
	index int
	cur   *openSlot[K, V]
}

// Next advances to the next live entry. It returns false once the slots are
// exhausted, and keeps returning false afterwards.
func (it *OpenMapIterator[K, V]) Next() bool {
	for it.index+1 < it.slots.Len() {
		it.index++
		if s := it.slots.At(it.index); s.state == slotLive {
			it.cur = s
			return true
		}
	}
	it.index = it.slots.Len()
	it.cur = nil
	return false
}

// Key returns the key of the current entry, or the zero key before the first
// Next and after exhaustion.
func (it *OpenMapIterator[K, V]) Key() (key K) {
	if it.cur != nil {
		key = it.cur.key
	}
	return
}

// Value returns the value of the current entry, or the zero value before the
// first Next and after exhaustion.
func (it *OpenMapIterator[K, V]) Value() (value V) {
	if it.cur != nil {
		value = it.cur.value
	}
	return
}

// Entry returns the current key-value pair.
func (it *OpenMapIterator[K, V]) Entry() Entry[K, V] {
	return Entry[K, V]{Key: it.Key(), Value: it.Value()}
}
