package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisClient is shared by the rate limit, OTP, idempotency and audit stores.
type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	// socket timeouts stay under the limiter's store deadline so a slow
	// redis surfaces as an error (fail-open) instead of a hung request
	timeout := 3 * time.Second
	if cfg.RateLimit.StoreTimeoutMs > 0 {
		timeout = time.Duration(cfg.RateLimit.StoreTimeoutMs) * time.Millisecond
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisClient{Client: rdb}, nil
}

// Ping backs the /health check.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
