package cache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLite is a Backend storing entries as BLOBs in a SQLite database using
// modernc.org/sqlite (pure Go, no CGO). Supports both file-backed
// (persistent across restarts) and ":memory:" modes. Expired entries are
// removed lazily on read and swept by a background goroutine at the
// configured expiry-check interval.
type SQLite struct {
	db        *sql.DB
	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
	once      sync.Once
	cfg       config
}

var _ Backend = (*SQLite)(nil)

// NewSQLite returns a Backend backed by SQLite. If dbPath is empty, an
// in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (*SQLite, error) {
	cfg := applyOptions(opts)
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, MarkBackend(errors.Wrap(err, "opening sqlite database"))
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, MarkBackend(errors.Wrap(err, "enabling WAL"))
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, MarkBackend(errors.Wrap(err, "creating cache table"))
	}

	// Index on expires_at for efficient sweeps.
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, MarkBackend(errors.Wrap(err, "creating expiry index"))
	}

	childCtx, cancel := context.WithCancel(ctx)
	c := &SQLite{
		db:     db,
		ctx:    childCtx,
		cancel: cancel,
		cfg:    cfg,
	}

	c.waitGroup.Add(1)
	go c.run()

	return c, nil
}

func (c *SQLite) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *SQLite) Get(ctx context.Context, key string) (bool, []byte, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	var data []byte
	var expiresAt int64
	err := c.db.QueryRowContext(qctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, MarkBackend(errors.Wrap(err, "sqlite select"))
	}

	if expiresAt != 0 && expiresAt <= time.Now().UnixNano() {
		// Lazily delete the expired entry.
		_, _ = c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
		return false, nil, nil
	}
	return true, data, nil
}

func (c *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UnixNano()
	}
	_, err := c.db.ExecContext(qctx,
		`INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt,
	)
	if err != nil {
		return MarkBackend(errors.Wrap(err, "sqlite upsert"))
	}
	return nil
}

func (c *SQLite) Remove(ctx context.Context, key string) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
		return MarkBackend(errors.Wrap(err, "sqlite delete"))
	}
	return nil
}

func (c *SQLite) Contains(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()

	var expiresAt int64
	err := c.db.QueryRowContext(qctx,
		`SELECT expires_at FROM cache WHERE key = ?`, key,
	).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, MarkBackend(errors.Wrap(err, "sqlite select"))
	}
	if expiresAt != 0 && expiresAt <= time.Now().UnixNano() {
		_, _ = c.db.ExecContext(qctx, `DELETE FROM cache WHERE key = ?`, key)
		return false, nil
	}
	return true, nil
}

func (c *SQLite) Clear(ctx context.Context) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	if _, err := c.db.ExecContext(qctx, `DELETE FROM cache`); err != nil {
		return MarkBackend(errors.Wrap(err, "sqlite clear"))
	}
	return nil
}

// Close stops the background sweeper and closes the database.
func (c *SQLite) Close() error {
	var dbErr error
	c.once.Do(func() {
		c.cancel()
		c.waitGroup.Wait()
		dbErr = c.db.Close()
	})
	return dbErr
}

func (c *SQLite) run() {
	defer c.waitGroup.Done()
	ticker := time.NewTicker(c.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UnixNano()
			_, _ = c.db.Exec(`DELETE FROM cache WHERE expires_at != 0 AND expires_at <= ?`, now)
		}
	}
}
