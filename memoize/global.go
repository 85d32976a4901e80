package memoize

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/fncache/go-fncache/cache"
)

// ErrAlreadyInitialized is returned by Init when the process-wide cache has
// already been set.
var ErrAlreadyInitialized = errors.New("global cache already initialized")

// ErrNotInitialized is returned by Default before Init has been called.
var ErrNotInitialized = errors.New("global cache not initialized")

var (
	globalMu sync.Mutex
	global   *Memoizer
)

// Init sets the process-wide cache backend used by Default. It may be
// called exactly once; later calls return ErrAlreadyInitialized. Prefer
// passing a Memoizer explicitly; the global exists for programs that want
// one shared cache without threading a handle everywhere.
func Init(backend cache.Backend) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return ErrAlreadyInitialized
	}
	global = New(backend)
	return nil
}

// Default returns the process-wide Memoizer set by Init.
func Default() (*Memoizer, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		return nil, ErrNotInitialized
	}
	return global, nil
}

// ResetForTesting clears the process-wide cache so tests can call Init
// again. Never use this in production code.
func ResetForTesting() {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()
}
