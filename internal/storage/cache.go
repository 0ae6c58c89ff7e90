package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JamesPrial/task-history/internal/task"
)

// DefaultCacheTTL bounds how long a cached task may outlive a write made by
// another process.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "task:"

// CachedStore wraps a Store with a Redis read-through cache for FindByID.
//
// Writes go to the wrapped store first; the cache is refreshed or evicted
// afterwards. Cache failures are logged and never fail an operation.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps next. A non-positive ttl uses DefaultCacheTTL; a nil
// logger discards cache warnings.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedStore{next: next, client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses url, builds a client, and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

func (s *CachedStore) remember(ctx context.Context, t task.Task) {
	data, err := json.Marshal(t)
	if err != nil {
		s.logger.WarnContext(ctx, "task cache encode failed", "task_id", t.ID, "error", err)
		return
	}
	if err := s.client.Set(ctx, cacheKey(t.ID), data, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "task cache write failed", "task_id", t.ID, "error", err)
	}
}

func (s *CachedStore) forget(ctx context.Context, id string) {
	if err := s.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.logger.WarnContext(ctx, "task cache evict failed", "task_id", id, "error", err)
	}
}

func (s *CachedStore) Create(ctx context.Context, t task.Task) (task.Task, error) {
	created, err := s.next.Create(ctx, t)
	if err != nil {
		return task.Task{}, err
	}
	s.remember(ctx, created)
	return created, nil
}

func (s *CachedStore) FindAll(ctx context.Context) ([]task.Task, error) {
	return s.next.FindAll(ctx)
}

func (s *CachedStore) FindByID(ctx context.Context, id string) (task.Task, error) {
	data, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var cached task.Task
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached.Clone(), nil
		}
		s.forget(ctx, id)
	case !errors.Is(err, redis.Nil):
		s.logger.WarnContext(ctx, "task cache read failed", "task_id", id, "error", err)
	}

	t, err := s.next.FindByID(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	s.remember(ctx, t)
	return t, nil
}

func (s *CachedStore) Update(ctx context.Context, id string, upd task.Update) (task.Task, error) {
	updated, err := s.next.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(ctx, id)
		}
		return task.Task{}, err
	}
	s.remember(ctx, updated)
	return updated, nil
}

func (s *CachedStore) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := s.next.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	s.forget(ctx, id)
	return removed, nil
}

// Close closes the wrapped store when it holds resources, then the Redis
// client.
func (s *CachedStore) Close() error {
	var errs []error
	if c, ok := s.next.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.client.Close())
	return errors.Join(errs...)
}
