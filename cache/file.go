package cache

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// fileEntry is the on-disk envelope for a cached value.
type fileEntry struct {
	Value []byte `msgpack:"v"`
	// UnixNano deadline, 0 = never expires.
	ExpiresAt int64 `msgpack:"e"`
}

// File is a filesystem Backend storing each entry as its own file under a
// two-level directory derived from the hash of the key. Entries survive
// process restarts. Expired entries are removed lazily when touched.
type File struct {
	baseDir string
	mu      sync.RWMutex
}

var _ Backend = (*File)(nil)

// NewFile returns a file-backed Backend rooted at baseDir, creating the
// directory if needed.
func NewFile(baseDir string) (*File, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, MarkBackend(errors.Wrap(err, "creating cache directory"))
	}
	return &File{baseDir: baseDir}, nil
}

// pathFor hashes the key into a filesystem-safe path. The first two hex
// characters of the hash form a fan-out directory to keep directory sizes
// bounded.
func (f *File) pathFor(key string) string {
	sum := xxhash.Sum64String(key)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(sum >> (56 - 8*i))
	}
	name := hex.EncodeToString(buf[:])
	return filepath.Join(f.baseDir, name[:2], name[2:])
}

func (f *File) readEntry(path string) (*fileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, MarkBackend(errors.Wrap(err, "reading cache entry"))
	}
	var e fileEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, MarkCodec(errors.Wrap(err, "decoding cache entry"))
	}
	return &e, nil
}

func (f *File) Get(_ context.Context, key string) (bool, []byte, error) {
	path := f.pathFor(key)

	f.mu.RLock()
	e, err := f.readEntry(path)
	f.mu.RUnlock()
	if err != nil {
		return false, nil, err
	}
	if e == nil {
		return false, nil, nil
	}
	if e.ExpiresAt != 0 && time.Now().UnixNano() >= e.ExpiresAt {
		f.mu.Lock()
		_ = os.Remove(path)
		f.mu.Unlock()
		return false, nil, nil
	}
	return true, e.Value, nil
}

func (f *File) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	data, err := msgpack.Marshal(&fileEntry{Value: value, ExpiresAt: expiresAt})
	if err != nil {
		return MarkCodec(errors.Wrap(err, "encoding cache entry"))
	}

	path := f.pathFor(key)
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return MarkBackend(errors.Wrap(err, "creating fan-out directory"))
	}
	// Write to a temp file then rename so readers never observe a partial
	// entry.
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return MarkBackend(errors.Wrap(err, "writing cache entry"))
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return MarkBackend(errors.Wrap(err, "renaming cache entry"))
	}
	return nil
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return MarkBackend(errors.Wrap(err, "removing cache entry"))
	}
	return nil
}

func (f *File) Contains(_ context.Context, key string) (bool, error) {
	path := f.pathFor(key)

	f.mu.RLock()
	e, err := f.readEntry(path)
	f.mu.RUnlock()
	if err != nil {
		return false, err
	}
	if e == nil {
		return false, nil
	}
	if e.ExpiresAt != 0 && time.Now().UnixNano() >= e.ExpiresAt {
		f.mu.Lock()
		_ = os.Remove(path)
		f.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dirs, err := os.ReadDir(f.baseDir)
	if err != nil {
		return MarkBackend(errors.Wrap(err, "listing cache directory"))
	}
	for _, d := range dirs {
		if err := os.RemoveAll(filepath.Join(f.baseDir, d.Name())); err != nil {
			return MarkBackend(errors.Wrap(err, "clearing cache directory"))
		}
	}
	return nil
}
