package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore counts requests in Redis so the limit holds across
// replicas. Backend errors at check time fail open: the request is
// admitted and the error logged, so a Redis outage cannot take the
// webhook endpoint down with it.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore verifies connectivity and returns a Redis-backed store.
func NewRedisStore(ctx context.Context, client *redis.Client, logger *zap.Logger) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client, logger: logger}, nil
}

// Allow implements Store using a fixed-size counter per key that expires
// with the window. The expiry is set only when INCR creates the counter;
// renewing it on every hit would keep a steadily probing client's count
// alive forever and the window would never roll over.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		s.logger.Warn("rate limit backend unavailable, admitting request",
			zap.String("key", key),
			zap.Error(err))
		return Result{Allowed: true, Remaining: 0}, nil
	}
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			s.logger.Warn("rate limit window expiry not set",
				zap.String("key", key),
				zap.Error(err))
		}
	}

	n := int(count)
	if n > limit {
		retryAfter, err := s.client.TTL(ctx, redisKey).Result()
		if err != nil || retryAfter <= 0 {
			retryAfter = window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}
	return Result{Allowed: true, Remaining: limit - n}, nil
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
