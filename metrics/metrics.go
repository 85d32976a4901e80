// Package metrics collects cache operation counters, latency accumulators
// and size tracking. All counters are safe for concurrent use without an
// engine-wide lock; reads are eventually consistent with respect to each
// other (a snapshot is not an atomic cut across counters).
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Latency is a snapshot of a latency accumulator: running total, sample
// count and observed maximum. It provides mean and max, no percentiles.
type Latency struct {
	TotalNs uint64
	Count   uint64
	MaxNs   uint64
}

// AverageNs returns the mean latency in nanoseconds, 0 if nothing recorded.
func (l Latency) AverageNs() float64 {
	if l.Count == 0 {
		return 0
	}
	return float64(l.TotalNs) / float64(l.Count)
}

// Average returns the mean latency as a Duration, 0 if nothing recorded.
func (l Latency) Average() time.Duration {
	if l.Count == 0 {
		return 0
	}
	return time.Duration(l.TotalNs / l.Count)
}

// Max returns the maximum observed latency.
func (l Latency) Max() time.Duration {
	return time.Duration(l.MaxNs)
}

// latencyAccum accumulates latency samples behind a small mutex. Samples
// are recorded per operation, so contention is bounded by operation rate.
type latencyAccum struct {
	mu sync.Mutex
	l  Latency
}

func (a *latencyAccum) record(d time.Duration) {
	ns := uint64(d.Nanoseconds())
	a.mu.Lock()
	a.l.TotalNs += ns
	a.l.Count++
	if ns > a.l.MaxNs {
		a.l.MaxNs = ns
	}
	a.mu.Unlock()
}

func (a *latencyAccum) snapshot() Latency {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.l
}

// Metrics tracks cache hits, misses, evictions, insertions, entry sizes and
// per-operation latency. The zero value is ready to use.
type Metrics struct {
	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	insertions atomic.Uint64

	totalBytes atomic.Int64
	entryCount atomic.Int64

	getLatency latencyAccum
	setLatency latencyAccum
}

// New returns a Metrics with all counters at zero.
func New() *Metrics {
	return &Metrics{}
}

// RecordHit records a cache hit.
func (m *Metrics) RecordHit() { m.hits.Add(1) }

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss() { m.misses.Add(1) }

// RecordEviction records a single evicted entry. Called once per removed
// entry, whether the removal was capacity-triggered or TTL-triggered.
func (m *Metrics) RecordEviction() { m.evictions.Add(1) }

// RecordInsertion records a cache insertion.
func (m *Metrics) RecordInsertion() { m.insertions.Add(1) }

// RecordEntrySize adjusts size tracking for an insert or overwrite.
// existed reports whether the key already held an entry; oldSize is the
// byte size of the value being replaced (0 for a new key).
func (m *Metrics) RecordEntrySize(existed bool, oldSize, newSize int) {
	if existed {
		if oldSize > 0 {
			m.totalBytes.Add(-int64(oldSize))
		}
	} else {
		m.entryCount.Add(1)
	}
	if newSize > 0 {
		m.totalBytes.Add(int64(newSize))
	}
}

// RecordEntryRemoval adjusts size tracking for a removed entry.
func (m *Metrics) RecordEntryRemoval(size int) {
	if size > 0 {
		m.totalBytes.Add(-int64(size))
	}
	m.entryCount.Add(-1)
}

// RecordGetLatency records the elapsed time of a Get that began at start.
func (m *Metrics) RecordGetLatency(start time.Time) {
	m.getLatency.record(time.Since(start))
}

// RecordSetLatency records the elapsed time of a Set that began at start.
func (m *Metrics) RecordSetLatency(start time.Time) {
	m.setLatency.record(time.Since(start))
}

// ResetSizes zeroes the size tracking (total bytes and entry count).
// Cumulative counters and latency accumulators are untouched.
func (m *Metrics) ResetSizes() {
	m.totalBytes.Store(0)
	m.entryCount.Store(0)
}

// Hits returns the hit count.
func (m *Metrics) Hits() uint64 { return m.hits.Load() }

// Misses returns the miss count.
func (m *Metrics) Misses() uint64 { return m.misses.Load() }

// Evictions returns the eviction count.
func (m *Metrics) Evictions() uint64 { return m.evictions.Load() }

// Insertions returns the insertion count.
func (m *Metrics) Insertions() uint64 { return m.insertions.Load() }

// TotalBytes returns the tracked value bytes currently stored.
func (m *Metrics) TotalBytes() int64 { return m.totalBytes.Load() }

// EntryCount returns the tracked number of stored entries.
func (m *Metrics) EntryCount() int64 { return m.entryCount.Load() }

// AverageEntrySize returns the mean value size in bytes, 0 when empty.
func (m *Metrics) AverageEntrySize() int64 {
	count := m.entryCount.Load()
	if count <= 0 {
		return 0
	}
	return m.totalBytes.Load() / count
}

// GetLatency returns a snapshot of Get latency.
func (m *Metrics) GetLatency() Latency { return m.getLatency.snapshot() }

// SetLatency returns a snapshot of Set latency.
func (m *Metrics) SetLatency() Latency { return m.setLatency.snapshot() }

// HitRate returns hits / (hits + misses) in [0, 1]. Returns 0 when no Get
// has been recorded, never NaN.
func (m *Metrics) HitRate() float64 {
	hits := m.hits.Load()
	misses := m.misses.Load()
	if hits == 0 && misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
