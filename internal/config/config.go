// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JamesPrial/task-history/internal/pathutil"
	"github.com/JamesPrial/task-history/internal/storage"
)

// Default file locations, relative to the data directory.
const (
	DefaultJSONFile   = ".tasks/tasks.json"
	DefaultSQLiteFile = ".tasks/tasks.db"
)

// Config is the resolved configuration shared by the binaries.
type Config struct {
	Addr    string
	Env     string
	BaseURL string

	Backend     string
	DataDir     string
	JSONPath    string
	SQLitePath  string
	PostgresURL string
	RedisURL    string
	CacheTTL    time.Duration

	LogLevel  string
	LogFormat string
}

// FromEnv builds a Config from TASKS_* environment variables so main stays
// lean.
//
// Environment variables:
//   - TASKS_ADDR: listen address (default ":8080")
//   - TASKS_ENV: deployment environment (default "development")
//   - TASKS_BASE_URL: public base URL (default "http://localhost")
//   - TASKS_STORAGE_BACKEND: memory, json (default), sqlite, or postgres
//   - TASKS_DATA_DIR: directory holding file-backed stores (default ".")
//   - TASKS_JSON_PATH, TASKS_SQLITE_PATH: file paths, confined to the data dir
//   - TASKS_POSTGRES_URL, TASKS_REDIS_URL: connection URLs
//   - TASKS_CACHE_TTL: Go duration (default 5m)
//   - TASKS_LOG_LEVEL, TASKS_LOG_FORMAT: see logger.New
//
// Returns an error if the data directory cannot be made absolute or a file
// path escapes it.
func FromEnv() (Config, error) {
	dataDir, err := filepath.Abs(envOr("TASKS_DATA_DIR", "."))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKS_DATA_DIR: %w", err)
	}

	jsonPath, err := pathutil.ResolveDataFile(dataDir, env("TASKS_JSON_PATH"), DefaultJSONFile)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKS_JSON_PATH: %w", err)
	}
	sqlitePath, err := pathutil.ResolveDataFile(dataDir, env("TASKS_SQLITE_PATH"), DefaultSQLiteFile)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TASKS_SQLITE_PATH: %w", err)
	}

	return Config{
		Addr:    envOr("TASKS_ADDR", ":8080"),
		Env:     envOr("TASKS_ENV", "development"),
		BaseURL: envOr("TASKS_BASE_URL", "http://localhost"),

		Backend:     strings.ToLower(envOr("TASKS_STORAGE_BACKEND", storage.BackendJSON)),
		DataDir:     dataDir,
		JSONPath:    jsonPath,
		SQLitePath:  sqlitePath,
		PostgresURL: env("TASKS_POSTGRES_URL"),
		RedisURL:    env("TASKS_REDIS_URL"),
		CacheTTL:    durationOr("TASKS_CACHE_TTL", storage.DefaultCacheTTL),

		LogLevel:  envOr("TASKS_LOG_LEVEL", "info"),
		LogFormat: envOr("TASKS_LOG_FORMAT", "json"),
	}, nil
}

// StorageOptions converts the storage settings for storage.Open.
func (c Config) StorageOptions(logger *slog.Logger) storage.Options {
	return storage.Options{
		Backend:     c.Backend,
		JSONPath:    c.JSONPath,
		SQLitePath:  c.SQLitePath,
		PostgresURL: c.PostgresURL,
		RedisURL:    c.RedisURL,
		CacheTTL:    c.CacheTTL,
		Logger:      logger,
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOr(key, fallback string) string {
	if v := env(key); v != "" {
		return v
	}
	return fallback
}

// durationOr falls back on unset or unparseable values, and on values that
// are not positive.
func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
