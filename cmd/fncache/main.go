// Command fncache is a small inspection CLI for the cache backends. It
// operates on a persistent backend (SQLite by default, Redis with
// --redis) so entries written in one invocation are visible in the next.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/fncache/go-fncache/cache"
)

var (
	configPath string
	sqlitePath string
	redisAddr  string
	prefix     string
	ttlFlag    string
)

func buildBackend(ctx context.Context) (cache.Backend, error) {
	if configPath != "" {
		cfg, err := cache.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		return cfg.Build(ctx)
	}
	cfg := &cache.Config{Backend: "sqlite", Path: sqlitePath, Prefix: prefix}
	if redisAddr != "" {
		cfg.Backend = "redis"
		cfg.RedisAddr = redisAddr
	}
	return cfg.Build(ctx)
}

func withBackend(run func(ctx context.Context, b cache.Backend, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := buildBackend(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if closer, ok := b.(cache.Closer); ok {
				closer.Close()
			}
		}()
		return run(ctx, b, args)
	}
}

func main() {
	root := &cobra.Command{
		Use:           "fncache",
		Short:         "Inspect and manipulate fncache backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&sqlitePath, "db", "fncache.db", "path to the SQLite database")
	root.PersistentFlags().StringVar(&redisAddr, "redis", "", "redis address (host:port); overrides --db")
	root.PersistentFlags().StringVar(&prefix, "prefix", "", "key prefix (redis backend)")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, b cache.Backend, args []string) error {
			found, val, err := b.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Printf("%s\n", val)
			return nil
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: withBackend(func(ctx context.Context, b cache.Backend, args []string) error {
			var ttl time.Duration
			if ttlFlag != "" {
				var err error
				ttl, err = str2duration.ParseDuration(ttlFlag)
				if err != nil {
					return fmt.Errorf("invalid --ttl %q: %w", ttlFlag, err)
				}
			}
			return b.Set(ctx, args[0], []byte(args[1]), ttl)
		}),
	}
	setCmd.Flags().StringVar(&ttlFlag, "ttl", "", `time to live, e.g. "90s", "5m", "1h30m" (default: never expires)`)

	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: withBackend(func(ctx context.Context, b cache.Backend, args []string) error {
			return b.Remove(ctx, args[0])
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b cache.Backend, args []string) error {
			return b.Clear(ctx)
		}),
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print engine metrics (memory backend only)",
		Args:  cobra.NoArgs,
		RunE: withBackend(func(ctx context.Context, b cache.Backend, args []string) error {
			m, ok := b.(*cache.Memory)
			if !ok {
				return fmt.Errorf("stats are only tracked by the memory backend")
			}
			mm := m.Metrics()
			fmt.Printf("entries:     %d\n", mm.EntryCount())
			fmt.Printf("bytes:       %d\n", mm.TotalBytes())
			fmt.Printf("hits:        %d\n", mm.Hits())
			fmt.Printf("misses:      %d\n", mm.Misses())
			fmt.Printf("hit rate:    %.2f\n", mm.HitRate())
			fmt.Printf("evictions:   %d\n", mm.Evictions())
			fmt.Printf("insertions:  %d\n", mm.Insertions())
			fmt.Printf("get latency: avg %s max %s\n", mm.GetLatency().Average(), mm.GetLatency().Max())
			fmt.Printf("set latency: avg %s max %s\n", mm.SetLatency().Average(), mm.SetLatency().Max())
			return nil
		}),
	}

	root.AddCommand(getCmd, setCmd, delCmd, clearCmd, statsCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
