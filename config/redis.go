package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis establishes a connection to Redis and verifies it with a ping.
// Returns an error if REDIS_ADDR is not configured or the server is unreachable.
func ConnectRedis(cfg *Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
