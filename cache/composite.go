package cache

import (
	"context"
	"time"
)

// Composite chains multiple Backends in order. Get returns the first hit
// (checked left to right); Set, Remove and Clear fan out to every backend.
// This enables multi-tier topologies such as an in-memory L1 in front of a
// Redis or SQLite L2.
type Composite struct {
	backends []Backend
}

var _ Backend = (*Composite)(nil)

// NewComposite returns a Backend that chains the given backends together.
// At least one backend must be provided; panics if empty.
func NewComposite(backends ...Backend) *Composite {
	if len(backends) == 0 {
		panic("cache: NewComposite requires at least one backend")
	}
	return &Composite{backends: backends}
}

func (c *Composite) Get(ctx context.Context, key string) (bool, []byte, error) {
	for _, b := range c.backends {
		found, val, err := b.Get(ctx, key)
		if err != nil {
			return false, nil, err
		}
		if found {
			return true, val, nil
		}
	}
	return false, nil, nil
}

func (c *Composite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.Set(ctx, key, value, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Composite) Remove(ctx context.Context, key string) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Composite) Contains(ctx context.Context, key string) (bool, error) {
	for _, b := range c.backends {
		found, err := b.Contains(ctx, key)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (c *Composite) Clear(ctx context.Context) error {
	var firstErr error
	for _, b := range c.backends {
		if err := b.Clear(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every chained backend that implements Closer.
func (c *Composite) Close() error {
	var firstErr error
	for _, b := range c.backends {
		if closer, ok := b.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
