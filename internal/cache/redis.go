package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStore shares artifacts between replicas. Every key is namespaced by prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 2
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	blob, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, blob, ttl).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, pattern string) (int, error) {
	if !isPattern(pattern) {
		n, err := s.client.Del(ctx, s.prefix+unescapeGlob(pattern)).Result()
		return int(n), err
	}
	match := EscapeGlob(s.prefix) + pattern
	removed := 0
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
