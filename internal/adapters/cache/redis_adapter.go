package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/ReOpAu/react-starter-kit-sub002/internal/infrastructure/clients/redis"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 200

// RedisResultStore implements providers.ResultStore on Redis. Every key is
// stored under prefix so the store can share a database with other apps.
type RedisResultStore struct {
	client *redisclient.Client
	prefix string
	ttl    time.Duration
}

// NewRedisResultStore creates a Redis-backed result store. A zero ttl keeps
// entries until removed.
func NewRedisResultStore(client *redisclient.Client, prefix string, ttl time.Duration) *RedisResultStore {
	return &RedisResultStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a value from Redis
func (a *RedisResultStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := a.client.Client().Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, true, nil
}

// Set stores a value in Redis
func (a *RedisResultStore) Set(ctx context.Context, key string, value []byte) error {
	if err := a.client.Client().Set(ctx, a.prefix+key, value, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Remove deletes a value from Redis
func (a *RedisResultStore) Remove(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, a.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// RemoveMatching scans the prefix and deletes every key match accepts
func (a *RedisResultStore) RemoveMatching(ctx context.Context, match func(key string) bool) (int, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return 0, err
	}

	var doomed []string
	for _, key := range keys {
		if match(key) {
			doomed = append(doomed, a.prefix+key)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	removed, err := a.client.Client().Del(ctx, doomed...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete matching keys: %w", err)
	}
	return int(removed), nil
}

// Keys lists every key under the prefix with the prefix stripped
func (a *RedisResultStore) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := a.client.Client().Scan(ctx, cursor, a.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		for _, key := range batch {
			keys = append(keys, strings.TrimPrefix(key, a.prefix))
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
