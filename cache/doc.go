// Package cache provides a byte-oriented caching contract with multiple
// backend implementations behind one interface.
//
// # Backend Contract
//
// The [Backend] interface defines five operations: [Backend.Get],
// [Backend.Set], [Backend.Remove], [Backend.Contains] and [Backend.Clear].
// Keys are opaque strings and values are raw byte slices; serialization
// lives above this package (see the memoize package). Every operation takes
// a context so implementations that perform I/O can honor cancellation;
// the in-memory engine completes synchronously and never fails.
//
// # Implementations
//
//   - [NewMemory]: the in-memory engine and the core of this library. A
//     sharded concurrent map with lazy TTL expiry, a pluggable eviction
//     policy (LRU or LFU, see the eviction package) enforcing a capacity
//     bound, and built-in metrics (hits, misses, evictions, sizes,
//     latency). Get and Contains sweep all expired entries out of the
//     store before looking up the requested key: cleanup cost is amortized
//     over accesses instead of a background timer, at the price of an O(n)
//     scan per call.
//
//   - [NewFile]: entries as individual files under a hashed two-level
//     directory layout. Survives restarts. Writes go through a temp file
//     and rename so readers never observe partial entries.
//
//   - [NewSQLite]: BLOBs in a SQLite database via [modernc.org/sqlite]
//     (pure Go, no CGO). File-backed or ":memory:". WAL mode is enabled,
//     expired rows are removed lazily on read and swept by a background
//     goroutine.
//
//   - [NewRedis]: values in Redis via [github.com/redis/go-redis/v9] with
//     native TTL expiry and optional key-prefix namespacing. The caller
//     owns the client lifecycle.
//
//   - [NewComposite]: chains backends into tiers; first hit wins on
//     reads, writes fan out.
//
//   - [NewTraced]: decorates any backend with an OpenTelemetry span per
//     operation.
//
// # Capacity and Eviction
//
// The memory engine enforces its capacity bound through the eviction
// policy: a new key inserted into a full store first evicts one entry, and
// a post-insert pass pulls the store back under the bound if concurrent
// inserts overshot. The bound is advisory-strict: a burst of concurrent
// Sets may transiently exceed it, converging once the burst settles.
package cache
