package cache

import (
	"context"
	"time"

	"github.com/fncache/go-fncache/logger"
)

// Backend is the contract every cache backend satisfies. Keys are opaque
// strings; values are raw byte sequences, and serialization happens above this
// interface. All operations take a context so I/O-backed implementations
// can honor cancellation and timeouts; the in-memory engine completes
// synchronously and never fails.
type Backend interface {
	// Get retrieves a value. Returns found=false for absent or expired keys.
	Get(ctx context.Context, key string) (bool, []byte, error)
	// Set stores a value with a TTL. A ttl <= 0 means the entry never
	// expires. Setting an existing key replaces its entry atomically.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Remove deletes a key. Removing an absent key is a successful no-op.
	Remove(ctx context.Context, key string) error
	// Contains reports whether a live (non-expired) entry exists for key.
	// It is a peek: it never counts as a hit or miss.
	Contains(ctx context.Context, key string) (bool, error)
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// Closer is implemented by backends that own resources (background
// goroutines, database handles) and need an explicit shutdown.
type Closer interface {
	Close() error
}

// DefaultQueryTimeout is the per-operation timeout for cache backends that
// perform I/O (SQLite, Redis). Prevents indefinite hangs on slow or
// unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// DefaultExpiryCheck is the default interval for background expired entry
// cleanup in the SQLite backend.
const DefaultExpiryCheck = time.Minute

// config holds the resolved configuration for a cache backend.
type config struct {
	maxCapacity    int
	evictionPolicy string
	queryTimeout   time.Duration
	expiryCheck    time.Duration
	prefix         string
	log            logger.Logger
}

// Option configures a cache backend.
type Option func(*config)

func defaultConfig() config {
	return config{
		evictionPolicy: "lru",
		queryTimeout:   DefaultQueryTimeout,
		expiryCheck:    DefaultExpiryCheck,
		log:            logger.NewConsole(logger.GetLevelFromEnv()),
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxCapacity bounds the number of entries in the memory engine.
// 0 (the default) means unlimited.
func WithMaxCapacity(n int) Option {
	return func(c *config) { c.maxCapacity = n }
}

// WithEvictionPolicy selects the eviction policy for the memory engine by
// name ("lru", "lfu"). Unrecognized names silently fall back to "lru".
func WithEvictionPolicy(name string) Option {
	return func(c *config) { c.evictionPolicy = name }
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed caches
// (SQLite, Redis). Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithExpiryCheck sets the interval for background expired entry cleanup
// in the SQLite backend. Defaults to DefaultExpiryCheck (1 minute).
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithPrefix sets the key prefix for namespacing cache keys. Applies to
// the Redis backend. Defaults to empty (no prefix).
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}

// WithLogger routes backend diagnostics to log. Defaults to a console
// logger at the level from FNCACHE_LOG_LEVEL (warn when unset).
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.log = log }
}
