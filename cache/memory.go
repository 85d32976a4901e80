package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/fncache/go-fncache/eviction"
	"github.com/fncache/go-fncache/logger"
	"github.com/fncache/go-fncache/metrics"
)

// shardCount must be a power of two.
const shardCount = 32

type memoryEntry struct {
	value []byte
	// Absolute expiration deadline in UnixNano. Zero means never expires.
	expiresAt int64
}

func (e *memoryEntry) expired(now int64) bool {
	return e.expiresAt != 0 && now >= e.expiresAt
}

type memoryShard struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// Memory is the in-memory cache engine: a sharded key-to-entry map with
// lazy TTL expiry and capacity enforcement through a pluggable eviction
// policy. Operations on different keys proceed without blocking each other;
// operations on the same key are last-writer-wins.
//
// Capacity enforcement is advisory-strict: under heavy concurrent Set
// traffic the store may transiently exceed the capacity between the
// pre-insert check and the insert itself. The post-insert enforcement pass
// bounds the overshoot and the store converges to at-or-below capacity once
// the burst settles.
//
// The five Backend operations never fail; the returned error is always nil.
type Memory struct {
	shards      [shardCount]memoryShard
	policy      eviction.Policy
	metrics     *metrics.Metrics
	maxCapacity int
	log         logger.Logger
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an in-memory Backend. Capacity and eviction policy are
// set through WithMaxCapacity and WithEvictionPolicy.
func NewMemory(opts ...Option) *Memory {
	cfg := applyOptions(opts)
	m := &Memory{
		policy:      eviction.New(cfg.evictionPolicy),
		metrics:     metrics.New(),
		maxCapacity: cfg.maxCapacity,
		log:         cfg.log.With(map[string]any{"backend": "memory"}),
	}
	for i := range m.shards {
		m.shards[i].entries = make(map[string]*memoryEntry)
	}
	return m
}

// Metrics returns the engine's metrics. Shared with concurrent callers.
func (m *Memory) Metrics() *metrics.Metrics { return m.metrics }

// Policy returns the engine's eviction policy. Shared with concurrent
// callers; its metadata mirrors the live keys of the store.
func (m *Memory) Policy() eviction.Policy { return m.policy }

// Len returns the current number of stored entries, expired or not.
func (m *Memory) Len() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

func (m *Memory) shardFor(key string) *memoryShard {
	return &m.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

// cleanupExpired removes every expired entry from the store. It runs as a
// maintenance step at the start of Get and Contains: cleanup cost is
// amortized over accesses at the price of an O(n) scan per call. There is
// no background sweeper in the engine.
func (m *Memory) cleanupExpired() {
	now := time.Now().UnixNano()
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for key, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, key)
				m.policy.OnRemove(key)
				m.metrics.RecordEviction()
				m.metrics.RecordEntryRemoval(len(e.value))
			}
		}
		s.mu.Unlock()
	}
}

// removeEntry deletes key from the store and syncs the eviction policy and
// size metrics in the same step. Every removal path funnels through here so
// the policy's shadow metadata cannot drift from the store.
func (m *Memory) removeEntry(key string) (size int, ok bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	m.policy.OnRemove(key)
	if !ok {
		return 0, false
	}
	m.metrics.RecordEntryRemoval(len(e.value))
	return len(e.value), true
}

// evictViaPolicy asks the policy for want keys and removes them from the
// store, counting one eviction per removed entry. Under-fulfillment is a
// policy-contract violation: it is logged at warn level and the operation
// continues.
func (m *Memory) evictViaPolicy(want int) {
	keys := m.policy.Evict(want)
	if len(keys) < want {
		m.log.Warn("eviction policy %s returned %d keys, %d needed", m.policy.Name(), len(keys), want)
	}
	for _, key := range keys {
		// The policy already dropped its metadata for the returned keys;
		// removeEntry's OnRemove is then a no-op for them.
		if _, ok := m.removeEntry(key); ok {
			m.metrics.RecordEviction()
		}
	}
}

// enforceCapacityLimit evicts entries until the store is back at or below
// the capacity bound.
func (m *Memory) enforceCapacityLimit() {
	if m.maxCapacity <= 0 {
		return
	}
	over := m.Len() - m.maxCapacity
	if over <= 0 {
		return
	}
	m.evictViaPolicy(over)
}

// Get returns the value stored under key, or found=false when the key is
// absent or expired. It first purges all expired entries from the store,
// then records a hit or miss and notifies the eviction policy of the
// access. Never fails.
func (m *Memory) Get(_ context.Context, key string) (bool, []byte, error) {
	start := time.Now()
	defer m.metrics.RecordGetLatency(start)

	m.cleanupExpired()

	s := m.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		m.metrics.RecordMiss()
		return false, nil, nil
	}
	if e.expired(time.Now().UnixNano()) {
		// Expired between the sweep and this lookup.
		m.metrics.RecordMiss()
		if _, removed := m.removeEntry(key); removed {
			m.metrics.RecordEviction()
		}
		return false, nil, nil
	}

	m.policy.OnAccess(key)
	m.metrics.RecordHit()

	// Copy so callers cannot mutate the stored bytes.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return true, out, nil
}

// Set stores value under key with the given TTL (ttl <= 0 never expires).
// When the key is new and the store is at capacity, one entry is evicted
// via the policy before the insert; a post-insert enforcement pass bounds
// any overshoot from concurrent inserts. Never fails.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer m.metrics.RecordSetLatency(start)

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}

	s := m.shardFor(key)
	s.mu.RLock()
	old, exists := s.entries[key]
	s.mu.RUnlock()

	oldSize := 0
	if exists {
		oldSize = len(old.value)
	}

	// Pre-emptive eviction: make room before inserting a new key into a
	// full store.
	if !exists && m.maxCapacity > 0 && m.Len() >= m.maxCapacity {
		m.evictViaPolicy(1)
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = &memoryEntry{value: stored, expiresAt: expiresAt}
	s.mu.Unlock()

	m.policy.OnInsert(key)
	m.metrics.RecordEntrySize(exists, oldSize, len(value))
	m.metrics.RecordInsertion()

	// Concurrent inserts may have overshot between the capacity check and
	// the insert; pull the store back under the bound.
	if m.maxCapacity > 0 && m.Len() > m.maxCapacity {
		m.enforceCapacityLimit()
	}
	return nil
}

// Remove deletes key and the policy metadata tracking it. Removing an
// absent key is a successful no-op. Never fails.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.removeEntry(key)
	return nil
}

// Contains reports whether a live entry exists for key. It performs the
// same expiry sweep as Get but is a peek: no hit or miss is recorded and
// the eviction policy is not notified. Never fails.
func (m *Memory) Contains(_ context.Context, key string) (bool, error) {
	m.cleanupExpired()

	s := m.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return !e.expired(time.Now().UnixNano()), nil
}

// Clear drops every entry, resets the eviction policy's metadata and zeroes
// the size metrics. Cumulative counters (hits, misses, evictions,
// insertions, latency) are retained. Never fails.
func (m *Memory) Clear(_ context.Context) error {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.entries = make(map[string]*memoryEntry)
		s.mu.Unlock()
	}
	m.policy.Reset()
	m.metrics.ResetSizes()
	return nil
}
