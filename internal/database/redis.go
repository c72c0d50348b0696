package database

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/supplycredit/internal/config"
	"go.uber.org/zap"
)

// OpenRedis returns a connected client, or nil when Redis is not configured
// or unreachable. Features backed by Redis degrade to disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	addr := cfg.Addr()
	if addr == "" {
		log.Info("redis not configured, idempotency keys disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis connection failed, continuing without redis", zap.String("addr", addr), zap.Error(err))
		rdb.Close()
		return nil
	}

	log.Info("redis connection established", zap.String("addr", addr))
	return rdb
}
