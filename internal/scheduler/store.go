package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// BaseKey is the prefix shared by every scheduler window cache entry.
// Invalidating it forces every open window to refetch.
const BaseKey = "scheduler-data"

// WindowKey returns the cache key for the window centered on the given month.
func WindowKey(month time.Time) string {
	return fmt.Sprintf("%s:%s", BaseKey, month.Format("2006-01"))
}

// WindowRange returns the fetched interval for a displayed month: one month
// before through one month after, a three-month sliding window.
func WindowRange(month time.Time) (time.Time, time.Time) {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, month.Location())
	return first.AddDate(0, -1, 0), first.AddDate(0, 2, 0)
}

// Store is the injected window cache contract used by the coordinator. The
// window entry for a month key is the only shared mutable state in the
// scheduler core; it is written solely by the coordinator (optimistic patch)
// and the fetch path (post-invalidation refetch).
type Store interface {
	// Get returns the cached window data, reporting whether the key was present.
	Get(ctx context.Context, key string) (*models.WindowData, bool, error)
	// Set replaces the window entry wholesale.
	Set(ctx context.Context, key string, data *models.WindowData) error
	// BeginFetch registers an in-flight fetch for the key, superseding any
	// previous one. The returned context is canceled when the fetch is
	// superseded or Cancel is called.
	BeginFetch(ctx context.Context, key string) (context.Context, context.CancelFunc)
	// Cancel aborts any in-flight fetch for the key so a stale response cannot
	// clobber a just-applied optimistic patch.
	Cancel(key string)
	// Invalidate drops every entry under the prefix, forcing refetch on the
	// next read.
	Invalidate(ctx context.Context, prefix string) error
}

// RedisStore is the production Store backed by Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	inflight map[string]*fetchToken
}

type fetchToken struct {
	cancel context.CancelFunc
}

// NewRedisStore constructs a Redis-backed window store.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		inflight: make(map[string]*fetchToken),
	}
}

// Get retrieves and unmarshals the cached window for the key.
func (s *RedisStore) Get(ctx context.Context, key string) (*models.WindowData, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var data models.WindowData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false, fmt.Errorf("unmarshal window %s: %w", key, err)
	}
	return &data, true, nil
}

// Set marshals and stores the window data under the key.
func (s *RedisStore) Set(ctx context.Context, key string, data *models.WindowData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal window %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// BeginFetch supersedes any previous fetch registered for the key.
func (s *RedisStore) BeginFetch(ctx context.Context, key string) (context.Context, context.CancelFunc) {
	fetchCtx, cancel := context.WithCancel(ctx)
	token := &fetchToken{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.cancel()
	}
	s.inflight[key] = token
	s.mu.Unlock()

	return fetchCtx, func() {
		s.mu.Lock()
		if s.inflight[key] == token {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel()
	}
}

// Cancel aborts the in-flight fetch for the key, if any.
func (s *RedisStore) Cancel(key string) {
	s.mu.Lock()
	token, ok := s.inflight[key]
	if ok {
		delete(s.inflight, key)
	}
	s.mu.Unlock()
	if ok {
		token.cancel()
	}
}

// Invalidate removes every cached window under the prefix.
func (s *RedisStore) Invalidate(ctx context.Context, prefix string) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
		s.logger.Debug("window invalidated", zap.String("key", key))
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan prefix %s: %w", prefix, err)
	}
	return nil
}
