package cache

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	str2duration "github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Config is the declarative configuration surface, loadable from YAML.
// Durations accept human-readable strings ("90s", "5m", "1h30m").
type Config struct {
	// Backend selects the implementation: "memory", "file", "sqlite",
	// "redis". Defaults to "memory".
	Backend string `yaml:"backend"`
	// MaxCapacity bounds the memory engine's entry count. 0 = unlimited.
	MaxCapacity int `yaml:"max_capacity"`
	// EvictionPolicy names the policy for the memory engine ("lru", "lfu").
	// Unrecognized names fall back to "lru".
	EvictionPolicy string `yaml:"eviction_policy"`
	// DefaultTTL applies when an operation does not specify a TTL.
	// Empty means entries never expire.
	DefaultTTL string `yaml:"default_ttl"`
	// Dir is the base directory for the file backend.
	Dir string `yaml:"dir"`
	// Path is the database path for the sqlite backend.
	Path string `yaml:"path"`
	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `yaml:"redis_addr"`
	// Prefix namespaces keys in the Redis backend.
	Prefix string `yaml:"prefix"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return &cfg, nil
}

// TTL parses DefaultTTL. Empty yields 0 (never expires).
func (c *Config) TTL() (time.Duration, error) {
	if c.DefaultTTL == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(c.DefaultTTL)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid default_ttl %q", c.DefaultTTL)
	}
	return d, nil
}

// Build constructs the Backend the config describes.
func (c *Config) Build(ctx context.Context, opts ...Option) (Backend, error) {
	base := []Option{
		WithMaxCapacity(c.MaxCapacity),
		WithEvictionPolicy(c.EvictionPolicy),
		WithPrefix(c.Prefix),
	}
	base = append(base, opts...)

	switch c.Backend {
	case "", "memory":
		return NewMemory(base...), nil
	case "file":
		return NewFile(c.Dir)
	case "sqlite":
		return NewSQLite(ctx, c.Path, base...)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		return NewRedis(client, base...), nil
	default:
		return nil, errors.Newf("unknown backend %q", c.Backend)
	}
}
