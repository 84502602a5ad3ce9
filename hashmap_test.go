package primemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

var (
	testDataSmall [8]string
	testData      [128]string
	testDataLarge [128 << 10]string
)

func init() {
	for i := range testDataSmall {
		testDataSmall[i] = fmt.Sprintf("%b", i)
	}
	for i := range testData {
		testData[i] = fmt.Sprintf("%b", i)
	}
	for i := range testDataLarge {
		testDataLarge[i] = fmt.Sprintf("%b", i)
	}
}

func TestMap_HeaderSize(t *testing.T) {
	t.Logf("CacheLineSize : %d", CacheLineSize)
	t.Logf("OpenMap header : %d", unsafe.Sizeof(OpenMap[string, int]{}))
	t.Logf("ChainMap header : %d", unsafe.Sizeof(ChainMap[string, int]{}))
}

type mapFactory struct {
	name    string
	newMap  func(options ...func(*MapConfig)) HashMap[string, int]
	maxLoad float64
}

var mapFactories = []mapFactory{
	{
		name: "OpenMap",
		newMap: func(options ...func(*MapConfig)) HashMap[string, int] {
			return NewOpenMap[string, int](options...)
		},
		maxLoad: openMaxLoad,
	},
	{
		name: "ChainMap",
		newMap: func(options ...func(*MapConfig)) HashMap[string, int] {
			return NewChainMap[string, int](options...)
		},
		maxLoad: chainMaxLoad,
	},
}

func TestHashMap(t *testing.T) {
	for _, f := range mapFactories {
		t.Run(f.name, func(t *testing.T) {
			testHashMap(t, f)
		})
	}
}

func testHashMap(t *testing.T, f mapFactory) {
	t.Run("GetEmpty", func(t *testing.T) {
		m := f.newMap()
		for _, s := range testData {
			expectMissing(t, s, 0)(m.Get(s))
			if m.ContainsKey(s) {
				t.Errorf("expected key %v to be absent", s)
			}
		}
	})
	t.Run("PutGet", func(t *testing.T) {
		m := f.newMap()
		for i, s := range testData {
			m.Put(s, i)
			expectPresent(t, s, i)(m.Get(s))
		}
		for i, s := range testData {
			expectPresent(t, s, i)(m.Get(s))
			if !m.ContainsKey(s) {
				t.Errorf("expected key %v to be present", s)
			}
		}
		if m.Size() != len(testData) {
			t.Fatalf("size got %d, want %d", m.Size(), len(testData))
		}
	})
	t.Run("Overwrite", func(t *testing.T) {
		m := f.newMap()
		for i, s := range testData {
			m.Put(s, i)
		}
		for i, s := range testData {
			m.Put(s, -i)
		}
		for i, s := range testData {
			expectPresent(t, s, -i)(m.Get(s))
		}
		if m.Size() != len(testData) {
			t.Fatalf("size got %d, want %d", m.Size(), len(testData))
		}
	})
	t.Run("Remove", func(t *testing.T) {
		m := f.newMap()
		for i, s := range testData {
			m.Put(s, i)
		}
		for i, s := range testData {
			want := m.Size() - 1
			m.Remove(s)
			expectMissing(t, s, 0)(m.Get(s))
			if m.Size() != want {
				t.Fatalf("after removing %v: size got %d, want %d", s, m.Size(), want)
			}
			for _, s2 := range testData[i+1:] {
				if !m.ContainsKey(s2) {
					t.Fatalf("after removing %v: key %v lost", s, s2)
				}
			}
		}
	})
	t.Run("RemoveAbsent", func(t *testing.T) {
		m := f.newMap()
		m.Put("a", 1)
		m.Remove("b")
		m.Remove("b")
		if m.Size() != 1 {
			t.Fatalf("size got %d, want 1", m.Size())
		}
		expectPresent(t, "a", 1)(m.Get("a"))
	})
	t.Run("LoadFactorBeforeInsert", func(t *testing.T) {
		m := f.newMap(WithCapacity(2))
		for i, s := range testData {
			m.Put(s, i)
			// the load seen by the last insertion was below the threshold
			before := float64(m.Size()-1) / float64(m.Capacity())
			if before >= f.maxLoad {
				t.Fatalf("key %d: load before insert %.3f >= %.1f (cap %d)", i, before, f.maxLoad, m.Capacity())
			}
			if !isPrime(m.Capacity()) {
				t.Fatalf("capacity %d is not prime", m.Capacity())
			}
		}
	})
	t.Run("Clear", func(t *testing.T) {
		m := f.newMap()
		for i, s := range testData {
			m.Put(s, i)
		}
		capacity := m.Capacity()
		m.Clear()
		if m.Size() != 0 {
			t.Fatalf("size got %d, want 0", m.Size())
		}
		if m.Capacity() != capacity {
			t.Fatalf("capacity got %d, want %d", m.Capacity(), capacity)
		}
		if m.EmptyBuckets() != capacity {
			t.Fatalf("empty buckets got %d, want %d", m.EmptyBuckets(), capacity)
		}
		for _, s := range testData {
			if m.ContainsKey(s) {
				t.Fatalf("key %v survived Clear", s)
			}
		}
		m.Put("x", 1)
		expectPresent(t, "x", 1)(m.Get("x"))
	})
	t.Run("ResizeRoundTrip", func(t *testing.T) {
		m := f.newMap()
		for i, s := range testData {
			m.Put(s, i)
		}
		before := sortedEntries(m.KeysAndValues())
		m.ResizeTable(m.Capacity() * 4)
		require.True(t, isPrime(m.Capacity()))
		require.Equal(t, before, sortedEntries(m.KeysAndValues()))
		require.Equal(t, len(testData), m.Size())
		for i, s := range testData {
			expectPresent(t, s, i)(m.Get(s))
		}
	})
	t.Run("ResizeRejected", func(t *testing.T) {
		m := f.newMap()
		m.Put("a", 1)
		capacity := m.Capacity()
		m.ResizeTable(0)
		m.ResizeTable(-7)
		require.Equal(t, capacity, m.Capacity())
		expectPresent(t, "a", 1)(m.Get("a"))
	})
	t.Run("KeysAndValues", func(t *testing.T) {
		m := f.newMap()
		want := make([]Entry[string, int], 0, len(testData))
		for i, s := range testData {
			m.Put(s, i)
			want = append(want, Entry[string, int]{Key: s, Value: i})
		}
		require.Equal(t, sortedEntries(want), sortedEntries(m.KeysAndValues()))
	})
	t.Run("EmptyBuckets", func(t *testing.T) {
		m := f.newMap()
		require.Equal(t, m.Capacity(), m.EmptyBuckets())
		m.Put("a", 1)
		require.Equal(t, m.Capacity()-1, m.EmptyBuckets())
		m.Remove("a")
		require.Equal(t, m.Capacity(), m.EmptyBuckets())
	})
	t.Run("TableLoad", func(t *testing.T) {
		m := f.newMap(WithCapacity(7))
		require.Equal(t, 0.0, m.TableLoad())
		m.Put("a", 1)
		m.Put("b", 2)
		require.InDelta(t, 2.0/7.0, m.TableLoad(), 1e-12)
	})
	t.Run("Random", func(t *testing.T) {
		testRandomAgainstModel(t, f.newMap(WithCapacity(3)))
		testRandomAgainstModel(t, f.newMap(WithCapacity(3), WithHasher(SumHash)))
	})
}

// testRandomAgainstModel drives m and a Go map with the same random
// operations and checks they agree.
func testRandomAgainstModel(t *testing.T, m HashMap[string, int]) {
	t.Helper()
	r := rand.New(rand.NewPCG(1, 2))
	model := make(map[string]int)
	keys := testData[:64]
	for op := 0; op < 20000; op++ {
		k := keys[r.IntN(len(keys))]
		switch r.IntN(4) {
		case 0, 1:
			m.Put(k, op)
			model[k] = op
		case 2:
			m.Remove(k)
			delete(model, k)
		case 3:
			want, ok := model[k]
			got, gotOk := m.Get(k)
			if ok != gotOk || got != want {
				t.Fatalf("op %d: Get(%v) got (%v,%v), want (%v,%v)", op, k, got, gotOk, want, ok)
			}
		}
		if m.Size() != len(model) {
			t.Fatalf("op %d: size got %d, want %d", op, m.Size(), len(model))
		}
	}
	got := make(map[string]int, m.Size())
	for _, e := range m.KeysAndValues() {
		if _, dup := got[e.Key]; dup {
			t.Fatalf("key %v listed twice", e.Key)
		}
		got[e.Key] = e.Value
	}
	require.Equal(t, model, got)
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(nil)
	require.Equal(t, defaultCapacity, cfg.Capacity)
	require.NotNil(t, cfg.KeyHash)

	cfg = buildConfig([]func(*MapConfig){WithCapacity(-3), WithHasher(nil)})
	require.Equal(t, defaultCapacity, cfg.Capacity)
	require.NotNil(t, cfg.KeyHash)

	cfg = buildConfig([]func(*MapConfig){WithCapacity(20), WithHasher(SumHash)})
	require.Equal(t, 20, cfg.Capacity)
	require.Equal(t, SumHash("abc"), cfg.KeyHash("abc"))
}

func TestNewWithHasher(t *testing.T) {
	om := NewOpenMapWithHasher[string, int](20, SumHash, WithCapacity(100))
	require.Equal(t, 23, om.Capacity())
	cm := NewChainMapWithHasher[string, int](20, SumHash, WithCapacity(100))
	require.Equal(t, 23, cm.Capacity())

	om = NewOpenMapWithHasher[string, int](0, nil)
	require.Equal(t, defaultCapacity, om.Capacity())
	cm = NewChainMapWithHasher[string, int](-1, nil)
	require.Equal(t, defaultCapacity, cm.Capacity())
}

type userID string

func TestStringLikeKeys(t *testing.T) {
	om := NewOpenMap[userID, string]()
	cm := NewChainMap[userID, string]()
	for _, m := range []HashMap[userID, string]{om, cm} {
		m.Put("u1", "alice")
		m.Put("u2", "bob")
		v, ok := m.Get("u1")
		require.True(t, ok)
		require.Equal(t, "alice", v)
		require.Equal(t, 2, m.Size())
	}
}

func TestJSON(t *testing.T) {
	om := NewOpenMap[string, int]()
	om.Put("a", 1)
	om.Put("b", 2)
	data, err := json.Marshal(om)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":2}`, string(data))

	var cm ChainMap[string, int]
	require.NoError(t, json.Unmarshal(data, &cm))
	require.Equal(t, map[string]int{"a": 1, "b": 2}, cm.ToMap())

	var om2 OpenMap[string, int]
	require.NoError(t, json.Unmarshal(data, &om2))
	require.Equal(t, om.ToMap(), om2.ToMap())

	err = om2.UnmarshalJSON([]byte(`[1,2]`))
	require.ErrorContains(t, err, "primemap: decode entries")
	var typeErr *json.UnmarshalTypeError
	require.True(t, errors.As(err, &typeErr))
}

func TestSetDefaultJSONMarshal(t *testing.T) {
	t.Cleanup(func() { SetDefaultJSONMarshal(nil, nil) })

	var marshals, unmarshals int
	SetDefaultJSONMarshal(
		func(v any) ([]byte, error) {
			marshals++
			return json.Marshal(v)
		},
		func(data []byte, v any) error {
			unmarshals++
			return json.Unmarshal(data, v)
		},
	)

	m := NewChainMap[string, int]()
	m.Put("k", 7)
	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, m.UnmarshalJSON([]byte(`{"j":8}`)))
	require.Equal(t, `{"k":7}`, string(data))
	require.Equal(t, 1, marshals)
	require.Equal(t, 1, unmarshals)
	require.Equal(t, map[string]int{"j": 8, "k": 7}, m.ToMap())
}

func TestString(t *testing.T) {
	om := NewOpenMap[string, int]()
	om.Put("a", 1)
	require.Equal(t, "OpenMap[a:1]", om.String())

	cm := NewChainMap[string, int]()
	cm.Put("a", 1)
	cm.Put("b", 2)
	require.Equal(t, "ChainMap[a:1 b:2]", fmt.Sprint(cm))
}

func TestMapStats_ToString(t *testing.T) {
	m := NewOpenMap[string, int]()
	m.Put("a", 1)
	s := m.Stats().ToString()
	require.Contains(t, s, "Capacity:     11\n")
	require.Contains(t, s, "Size:         1\n")
	require.Contains(t, s, "LoadFactor:   0.0909\n")
}

func sortedEntries[K ~string, V any](entries []Entry[K, V]) []Entry[K, V] {
	out := append([]Entry[K, V](nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func expectPresent[K ~string, V comparable](t *testing.T, key K, want V) func(got V, ok bool) {
	t.Helper()
	return func(got V, ok bool) {
		t.Helper()

		if !ok {
			t.Errorf("expected key %v to be present in map", key)
		}
		if ok && got != want {
			t.Errorf("expected key %v to have value %v, got %v", key, want, got)
		}
	}
}

func expectMissing[K ~string, V comparable](t *testing.T, key K, want V) func(got V, ok bool) {
	t.Helper()
	if want != *new(V) {
		// This is awkward, but the want argument is necessary to smooth over type inference.
		// Just make sure the want argument always looks the same.
		panic("expectMissing must always have a zero value variable")
	}
	return func(got V, ok bool) {
		t.Helper()

		if ok {
			t.Errorf("expected key %v to be missing from map, got value %v", key, got)
		}
		if !ok && got != want {
			t.Errorf("expected missing key %v to be paired with the zero value; got %v", key, got)
		}
	}
}
