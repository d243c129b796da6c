package redisgeo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/logger"
)

// NewClient builds a Redis client from cfg, verifies connectivity, and returns it.
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	addr := net.JoinHostPort(cfg.Redis.Host, strconv.Itoa(cfg.Redis.Port))

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"addr": addr,
		"db":   cfg.Redis.DB,
	})
	return client, nil
}
