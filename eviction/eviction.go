// Package eviction provides pluggable cache eviction policies. A Policy is
// a shadow index of the cache store: it tracks per-key recency or frequency
// metadata and decides which keys to sacrifice when the store is over
// capacity. The cache engine is responsible for keeping the policy in sync
// by routing every store mutation through the policy callbacks.
package eviction

import (
	"sort"
	"strings"
	"sync"
)

// Policy decides which keys to evict when the cache needs space. All
// methods are safe for concurrent use; the engine calls them without
// external locking.
type Policy interface {
	// OnInsert is called when a key is inserted into the store.
	OnInsert(key string)
	// OnAccess is called when a key is read from the store.
	OnAccess(key string)
	// OnRemove is called when a key is removed from the store.
	OnRemove(key string)
	// Evict returns up to n keys to remove, least-desirable first, and
	// drops its own metadata for the returned keys so a subsequent call
	// never returns a key already chosen. It may return fewer than n keys
	// when it tracks fewer.
	Evict(n int) []string
	// Reset drops all tracked metadata.
	Reset()
	// Name returns the policy name ("lru", "lfu").
	Name() string
}

// New returns the policy registered under name (case-insensitive).
// Unrecognized names silently fall back to LRU.
func New(name string) Policy {
	switch strings.ToLower(name) {
	case "lfu":
		return NewLFU()
	case "lru":
		return NewLRU()
	default:
		return NewLRU()
	}
}

// LRU evicts the keys with the oldest last-access timestamp. Timestamps
// are drawn from a logical clock advanced on every insert and access, so
// ordering stays strict even when the wall clock is too coarse to separate
// back-to-back operations. Relative order among keys with equal timestamps
// is unspecified.
type LRU struct {
	mu       sync.Mutex
	clock    int64
	accessed map[string]int64
}

var _ Policy = (*LRU)(nil)

// NewLRU returns an empty least-recently-used policy.
func NewLRU() *LRU {
	return &LRU{accessed: make(map[string]int64)}
}

func (p *LRU) Name() string { return "lru" }

func (p *LRU) OnInsert(key string) {
	p.mu.Lock()
	p.clock++
	p.accessed[key] = p.clock
	p.mu.Unlock()
}

func (p *LRU) OnAccess(key string) {
	p.mu.Lock()
	if _, ok := p.accessed[key]; ok {
		p.clock++
		p.accessed[key] = p.clock
	}
	p.mu.Unlock()
}

func (p *LRU) OnRemove(key string) {
	p.mu.Lock()
	delete(p.accessed, key)
	p.mu.Unlock()
}

func (p *LRU) Evict(n int) []string {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.accessed) == 0 {
		return nil
	}

	type entry struct {
		key string
		at  int64
	}
	entries := make([]entry, 0, len(p.accessed))
	for key, at := range p.accessed {
		entries = append(entries, entry{key, at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at < entries[j].at })

	if n > len(entries) {
		n = len(entries)
	}
	keys := make([]string, 0, n)
	for _, e := range entries[:n] {
		delete(p.accessed, e.key)
		keys = append(keys, e.key)
	}
	return keys
}

func (p *LRU) Reset() {
	p.mu.Lock()
	p.accessed = make(map[string]int64)
	p.mu.Unlock()
}

// LFU evicts the keys with the lowest access count. A key starts at count 1
// on insert and gains 1 per access.
type LFU struct {
	mu     sync.Mutex
	counts map[string]uint64
}

var _ Policy = (*LFU)(nil)

// NewLFU returns an empty least-frequently-used policy.
func NewLFU() *LFU {
	return &LFU{counts: make(map[string]uint64)}
}

func (p *LFU) Name() string { return "lfu" }

func (p *LFU) OnInsert(key string) {
	p.mu.Lock()
	p.counts[key] = 1
	p.mu.Unlock()
}

func (p *LFU) OnAccess(key string) {
	p.mu.Lock()
	p.counts[key]++
	p.mu.Unlock()
}

func (p *LFU) OnRemove(key string) {
	p.mu.Lock()
	delete(p.counts, key)
	p.mu.Unlock()
}

func (p *LFU) Evict(n int) []string {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.counts) == 0 {
		return nil
	}

	type entry struct {
		key   string
		count uint64
	}
	entries := make([]entry, 0, len(p.counts))
	for key, count := range p.counts {
		entries = append(entries, entry{key, count})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].count < entries[j].count })

	if n > len(entries) {
		n = len(entries)
	}
	keys := make([]string, 0, n)
	for _, e := range entries[:n] {
		delete(p.counts, e.key)
		keys = append(keys, e.key)
	}
	return keys
}

func (p *LFU) Reset() {
	p.mu.Lock()
	p.counts = make(map[string]uint64)
	p.mu.Unlock()
}
