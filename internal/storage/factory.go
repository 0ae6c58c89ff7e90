package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a backend. Paths are expected to be
// resolved already; see config.FromEnv.
type Options struct {
	Backend     string
	JSONPath    string
	SQLitePath  string
	PostgresURL string

	// RedisURL enables the read-through cache when non-empty.
	RedisURL string
	CacheTTL time.Duration

	Logger *slog.Logger
}

// Open builds the backend named by opts.Backend (case-insensitive, default
// "json") and wraps it with a CachedStore when opts.RedisURL is set.
//
// The returned close function releases every handle the store holds and is
// never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendJSON
	}

	var (
		store   Store
		closeFn = func() error { return nil }
	)

	switch backend {
	case BackendMemory:
		store = NewMemoryStore()

	case BackendJSON:
		if opts.JSONPath == "" {
			return nil, nil, fmt.Errorf("json backend requires a file path")
		}
		store = NewJSONBackend(opts.JSONPath)

	case BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, nil, fmt.Errorf("sqlite backend requires a database path")
		}
		b, err := NewSQLiteBackend(opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = b, b.Close

	case BackendPostgres:
		if opts.PostgresURL == "" {
			return nil, nil, fmt.Errorf("postgres backend requires TASKS_POSTGRES_URL to be set")
		}
		b, err := NewPostgresBackend(ctx, opts.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = b, b.Close

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q. Expected 'memory', 'json', 'sqlite', or 'postgres'", backend)
	}

	if opts.RedisURL == "" {
		return store, closeFn, nil
	}

	client, err := NewRedisClient(ctx, opts.RedisURL)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	cached := NewCachedStore(store, client, opts.CacheTTL, opts.Logger)
	return cached, cached.Close, nil
}
