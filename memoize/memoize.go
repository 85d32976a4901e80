// Package memoize caches function results in any cache backend. A wrapped
// function executes once per distinct key; repeated calls deserialize the
// stored result instead of re-executing the body. Values are encoded with
// msgpack, so result types must round-trip through it.
package memoize

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/fncache/go-fncache/cache"
)

// Memoizer binds a cache backend to a singleflight group so concurrent
// misses on the same key execute the underlying function once.
type Memoizer struct {
	backend cache.Backend
	group   singleflight.Group
}

// New returns a Memoizer over backend.
func New(backend cache.Backend) *Memoizer {
	return &Memoizer{backend: backend}
}

// Backend returns the wrapped cache backend.
func (m *Memoizer) Backend() cache.Backend { return m.backend }

// Invalidate drops the cached result for key, forcing the next call to
// recompute.
func (m *Memoizer) Invalidate(ctx context.Context, key string) error {
	return m.backend.Remove(ctx, key)
}

// Do returns the cached result under key, or computes it with invoke, stores
// it with the given TTL (ttl <= 0 never expires) and returns it. Concurrent
// callers missing on the same key share a single invocation. Backend and
// codec failures are propagated; a failed invoke caches nothing.
func Do[T any](ctx context.Context, m *Memoizer, key string, ttl time.Duration, invoke func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	found, data, err := m.backend.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if found {
		var out T
		if err := msgpack.Unmarshal(data, &out); err != nil {
			return zero, cache.MarkCodec(errors.Wrapf(err, "decoding cached result for %q", key))
		}
		return out, nil
	}

	encoded, err, _ := m.group.Do(key, func() (any, error) {
		result, err := invoke(ctx)
		if err != nil {
			return nil, err
		}
		data, err := msgpack.Marshal(result)
		if err != nil {
			return nil, cache.MarkCodec(errors.Wrapf(err, "encoding result for %q", key))
		}
		if err := m.backend.Set(ctx, key, data, ttl); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := msgpack.Unmarshal(encoded.([]byte), &out); err != nil {
		return zero, cache.MarkCodec(errors.Wrapf(err, "decoding result for %q", key))
	}
	return out, nil
}

// Cached1 returns a memoized version of a one-argument function. Each
// distinct argument value gets its own cache entry keyed by name.
func Cached1[A any, R any](m *Memoizer, name string, ttl time.Duration, fn func(ctx context.Context, a A) (R, error)) func(ctx context.Context, a A) (R, error) {
	return func(ctx context.Context, a A) (R, error) {
		return Do(ctx, m, Key(name, a), ttl, func(ctx context.Context) (R, error) {
			return fn(ctx, a)
		})
	}
}

// Cached2 returns a memoized version of a two-argument function.
func Cached2[A any, B any, R any](m *Memoizer, name string, ttl time.Duration, fn func(ctx context.Context, a A, b B) (R, error)) func(ctx context.Context, a A, b B) (R, error) {
	return func(ctx context.Context, a A, b B) (R, error) {
		return Do(ctx, m, Key(name, a, b), ttl, func(ctx context.Context) (R, error) {
			return fn(ctx, a, b)
		})
	}
}
