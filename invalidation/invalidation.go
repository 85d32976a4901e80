// Package invalidation adds tag and prefix based bulk invalidation on top
// of any cache backend. Tags associate metadata with cached entries so
// groups of related items can be removed in one call regardless of their
// key structure; prefixes rely on structured key naming (such as
// "user:123:profile") to group related entries.
//
// The indexes are in-process bookkeeping: they track only keys registered
// through this wrapper, not keys written to the backend directly.
package invalidation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fncache/go-fncache/cache"
)

// Tag labels a cached entry for group invalidation. Multiple entries can
// share a tag.
type Tag string

// Cache wraps a backend with tag-to-keys and prefix-to-keys indexes for
// bulk invalidation. Safe for concurrent use.
type Cache struct {
	backend cache.Backend

	mu        sync.Mutex
	tagToKeys map[Tag]map[string]struct{}
	prefixes  map[string]map[string]struct{}
}

var _ cache.Backend = (*Cache)(nil)

// New returns an invalidation wrapper around backend.
func New(backend cache.Backend) *Cache {
	return &Cache{
		backend:   backend,
		tagToKeys: make(map[Tag]map[string]struct{}),
		prefixes:  make(map[string]map[string]struct{}),
	}
}

// SetWithTags stores a value and registers the key under the given tags
// and under every ":"-separated prefix of the key.
func (c *Cache) SetWithTags(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...Tag) error {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	c.register(key, tags)
	return nil
}

// register indexes key under tags and under its key prefixes. For the key
// "users:123:profile" the prefixes "users" and "users:123" are registered.
func (c *Cache) register(key string, tags []Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		keys, ok := c.tagToKeys[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagToKeys[tag] = keys
		}
		keys[key] = struct{}{}
	}

	parts := strings.Split(key, ":")
	prefix := ""
	for i := 0; i < len(parts)-1; i++ {
		if i > 0 {
			prefix += ":"
		}
		prefix += parts[i]
		keys, ok := c.prefixes[prefix]
		if !ok {
			keys = make(map[string]struct{})
			c.prefixes[prefix] = keys
		}
		keys[key] = struct{}{}
	}
}

// unregister drops key from every tag and prefix index, pruning index
// entries that become empty.
func (c *Cache) unregister(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for tag, keys := range c.tagToKeys {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.tagToKeys, tag)
		}
	}
	for prefix, keys := range c.prefixes {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.prefixes, prefix)
		}
	}
}

// KeysByTag returns the keys currently registered under tag.
func (c *Cache) KeysByTag(tag Tag) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.tagToKeys[tag]))
	for key := range c.tagToKeys[tag] {
		out = append(out, key)
	}
	return out
}

// KeysByPrefix returns the keys currently registered under prefix.
func (c *Cache) KeysByPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.prefixes[prefix]))
	for key := range c.prefixes[prefix] {
		out = append(out, key)
	}
	return out
}

// InvalidateTag removes every entry registered under tag.
func (c *Cache) InvalidateTag(ctx context.Context, tag Tag) error {
	for _, key := range c.KeysByTag(tag) {
		if err := c.backend.Remove(ctx, key); err != nil {
			return err
		}
		c.unregister(key)
	}
	return nil
}

// InvalidateTags removes every entry registered under any of the tags.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...Tag) error {
	for _, tag := range tags {
		if err := c.InvalidateTag(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}

// InvalidatePrefix removes every entry whose key was registered under
// prefix.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) error {
	for _, key := range c.KeysByPrefix(prefix) {
		if err := c.backend.Remove(ctx, key); err != nil {
			return err
		}
		c.unregister(key)
	}
	return nil
}

// InvalidatePrefixes removes every entry registered under any of the
// prefixes.
func (c *Cache) InvalidatePrefixes(ctx context.Context, prefixes ...string) error {
	for _, prefix := range prefixes {
		if err := c.InvalidatePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

// Get delegates to the wrapped backend.
func (c *Cache) Get(ctx context.Context, key string) (bool, []byte, error) {
	return c.backend.Get(ctx, key)
}

// Set stores a value without tags. The key still gains prefix
// registration so prefix invalidation covers it.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	c.register(key, nil)
	return nil
}

// Remove deletes the entry and drops its index registrations.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.backend.Remove(ctx, key); err != nil {
		return err
	}
	c.unregister(key)
	return nil
}

// Contains delegates to the wrapped backend.
func (c *Cache) Contains(ctx context.Context, key string) (bool, error) {
	return c.backend.Contains(ctx, key)
}

// Clear drops all entries and both indexes.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.tagToKeys = make(map[Tag]map[string]struct{})
	c.prefixes = make(map[string]map[string]struct{})
	c.mu.Unlock()
	return nil
}
