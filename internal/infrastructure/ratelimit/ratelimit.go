package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New selects a backend by name. "redis" requires a reachable server;
// if the startup ping fails the service degrades to a per-process
// in-memory limiter instead of refusing to boot.
func New(ctx context.Context, backend string, client *redis.Client, logger *zap.Logger) Store {
	if backend == "redis" && client != nil {
		store, err := NewRedisStore(ctx, client, logger)
		if err == nil {
			logger.Info("rate limiting backed by redis")
			return store
		}
		logger.Warn("redis rate limit backend unavailable, falling back to in-memory",
			zap.Error(err))
	}
	return NewMemoryStore()
}
