package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewClient builds a client from a redis:// URL, falling back to treating the
// value as a bare host:port address
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	} else {
		client = redis.NewClient(opt)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
