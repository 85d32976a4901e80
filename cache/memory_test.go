package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fncache/go-fncache/logger"
)

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	found, val, err := m.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	require.NoError(t, m.Set(ctx, "key", []byte("value"), 0))
	found, val, err = m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), val)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "key", []byte("value"), 50*time.Millisecond))

	found, _, err := m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)

	time.Sleep(80 * time.Millisecond)

	found, val, err := m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	// The expired entry is gone from the store, not just hidden.
	assert.Equal(t, 0, m.Len())
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "key", []byte("value"), 0))
	time.Sleep(20 * time.Millisecond)

	found, _, err := m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryCapacityBoundSteadyState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(3))

	for i := 0; i < 20; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), 0))
		assert.LessOrEqual(t, m.Len(), 3)
	}
	assert.Equal(t, 3, m.Len())
}

func TestMemoryLRUEvictionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(2), WithEvictionPolicy("lru"))

	require.NoError(t, m.Set(ctx, "1", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "2", []byte("b"), 0))

	// Touch "1" so "2" becomes least recently used.
	found, _, err := m.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, found)

	require.NoError(t, m.Set(ctx, "3", []byte("c"), 0))

	has1, _ := m.Contains(ctx, "1")
	has2, _ := m.Contains(ctx, "2")
	has3, _ := m.Contains(ctx, "3")
	assert.True(t, has1)
	assert.False(t, has2)
	assert.True(t, has3)
}

func TestMemoryLFUEvictionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(2), WithEvictionPolicy("lfu"))

	require.NoError(t, m.Set(ctx, "1", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "2", []byte("b"), 0))

	// "1" gains two extra accesses; "2" stays at its insert count.
	m.Get(ctx, "1")
	m.Get(ctx, "1")

	require.NoError(t, m.Set(ctx, "3", []byte("c"), 0))

	has2, _ := m.Contains(ctx, "2")
	assert.False(t, has2)
}

func TestMemoryRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Removing an absent key succeeds and has no observable effect.
	assert.NoError(t, m.Remove(ctx, "ghost"))

	require.NoError(t, m.Set(ctx, "key", []byte("value"), 0))
	assert.NoError(t, m.Remove(ctx, "key"))
	assert.NoError(t, m.Remove(ctx, "key"))

	found, _, err := m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, int64(0), m.Metrics().EntryCount())
}

func TestMemoryOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "key", []byte("v1"), 0))
	require.NoError(t, m.Set(ctx, "key", []byte("v2-longer"), 0))

	found, val, err := m.Get(ctx, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2-longer"), val)

	// Overwrite replaces the entry, it does not add one.
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, int64(1), m.Metrics().EntryCount())
	assert.Equal(t, int64(len("v2-longer")), m.Metrics().TotalBytes())
}

func TestMemoryReturnedValueIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "key", []byte("abc"), 0))
	_, val, _ := m.Get(ctx, "key")
	val[0] = 'X'

	_, again, _ := m.Get(ctx, "key")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(10))

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), 0))
	}
	require.NoError(t, m.Clear(ctx))

	for i := 0; i < 5; i++ {
		found, err := m.Contains(ctx, fmt.Sprintf("key-%d", i))
		assert.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 0, m.Len())

	// Clear resets the policy metadata: no phantom keys left to evict.
	assert.Empty(t, m.Policy().Evict(10))

	// Size metrics are zeroed; cumulative counters survive.
	assert.Equal(t, int64(0), m.Metrics().EntryCount())
	assert.Equal(t, int64(0), m.Metrics().TotalBytes())
	assert.Equal(t, uint64(5), m.Metrics().Insertions())
}

func TestMemoryMetricsConsistency(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.Equal(t, 0.0, m.Metrics().HitRate())

	require.NoError(t, m.Set(ctx, "key", []byte("value"), 0))

	const gets = 10
	for i := 0; i < gets; i++ {
		if i%2 == 0 {
			m.Get(ctx, "key")
		} else {
			m.Get(ctx, "nope")
		}
	}

	mm := m.Metrics()
	assert.Equal(t, uint64(gets), mm.Hits()+mm.Misses())
	assert.Equal(t, uint64(5), mm.Hits())
	assert.Equal(t, uint64(5), mm.Misses())
	assert.Equal(t, 0.5, mm.HitRate())
	assert.Equal(t, uint64(gets), mm.GetLatency().Count)
}

func TestMemoryContainsIsAPeek(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(2), WithEvictionPolicy("lru"))

	require.NoError(t, m.Set(ctx, "1", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "2", []byte("b"), 0))

	// Contains must not refresh recency or count as traffic.
	for i := 0; i < 5; i++ {
		found, err := m.Contains(ctx, "1")
		assert.NoError(t, err)
		assert.True(t, found)
	}
	assert.Equal(t, uint64(0), m.Metrics().Hits())
	assert.Equal(t, uint64(0), m.Metrics().Misses())

	// "1" was only peeked, so it is still the least recently used.
	require.NoError(t, m.Set(ctx, "3", []byte("c"), 0))
	has1, _ := m.Contains(ctx, "1")
	assert.False(t, has1)
}

func TestMemoryEvictionMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(2))

	require.NoError(t, m.Set(ctx, "1", []byte("a"), 0))
	require.NoError(t, m.Set(ctx, "2", []byte("b"), 0))
	require.NoError(t, m.Set(ctx, "3", []byte("c"), 0))

	assert.Equal(t, uint64(1), m.Metrics().Evictions())
	assert.Equal(t, uint64(3), m.Metrics().Insertions())
	assert.Equal(t, int64(2), m.Metrics().EntryCount())
}

func TestMemoryExpiredSweepDuringContains(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "short", []byte("v"), 30*time.Millisecond))
	require.NoError(t, m.Set(ctx, "long", []byte("v"), 0))
	time.Sleep(50 * time.Millisecond)

	// Touching any key purges every expired entry from the store.
	found, err := m.Contains(ctx, "long")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, uint64(1), m.Metrics().Evictions())
}

func TestMemoryEvictionUnderfulfillmentWarns(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	m := NewMemory(WithMaxCapacity(1), WithLogger(log))

	require.NoError(t, m.Set(ctx, "1", []byte("a"), 0))

	// Starve the policy of metadata so Evict cannot fulfill the request.
	m.Policy().Reset()

	require.NoError(t, m.Set(ctx, "2", []byte("b"), 0))

	var warned bool
	for _, e := range log.Entries() {
		if e.Severity == "WARNING" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning when the policy under-fulfills")
}

func TestMemoryEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(2), WithEvictionPolicy("lru"))

	require.NoError(t, m.Set(ctx, "a", []byte{1}, 0))
	require.NoError(t, m.Set(ctx, "b", []byte{2}, 0))

	found, val, err := m.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte{1}, val)

	require.NoError(t, m.Set(ctx, "c", []byte{3}, 0))

	hasB, _ := m.Contains(ctx, "b")
	hasA, _ := m.Contains(ctx, "a")
	hasC, _ := m.Contains(ctx, "c")
	assert.False(t, hasB)
	assert.True(t, hasA)
	assert.True(t, hasC)
}

func TestMemoryConcurrentSameKeyLastWriterWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v1 := []byte("value-one")
	v2 := []byte("value-two")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); m.Set(ctx, "k", v1, 0) }()
		go func() { defer wg.Done(); m.Set(ctx, "k", v2, 0) }()
	}
	wg.Wait()

	found, val, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	// Final state is exactly one of the written values, never a mix.
	assert.True(t, string(val) == string(v1) || string(val) == string(v2))
}

func TestMemoryConcurrentBurstConvergesToCapacity(t *testing.T) {
	ctx := context.Background()
	const capacity = 16
	m := NewMemory(WithMaxCapacity(capacity))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Set(ctx, fmt.Sprintf("g%d-k%d", g, i), []byte("v"), 0)
			}
		}(g)
	}
	wg.Wait()

	// The bound is advisory during the burst; after it settles one more
	// Set pulls the store back to at-or-below capacity.
	require.NoError(t, m.Set(ctx, "final", []byte("v"), 0))
	assert.LessOrEqual(t, m.Len(), capacity)
}

func TestMemoryConcurrentMixedOperations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxCapacity(64), WithEvictionPolicy("lfu"))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				switch i % 5 {
				case 0:
					m.Set(ctx, key, []byte("value"), time.Minute)
				case 1:
					m.Get(ctx, key)
				case 2:
					m.Contains(ctx, key)
				case 3:
					m.Remove(ctx, key)
				default:
					m.Set(ctx, key, []byte("other"), 0)
				}
			}
		}(g)
	}
	wg.Wait()
}
