package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bundle-app-shopify-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "oauth:nonce:"

// NonceStore keeps OAuth state nonces in Redis until they are consumed or expire
type NonceStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.NonceStore = (*NonceStore)(nil)

// NewNonceStore creates a nonce store whose entries expire after ttl
func NewNonceStore(client redis.Cmdable, ttl time.Duration) *NonceStore {
	return &NonceStore{client: client, ttl: ttl}
}

// SaveNonce records a nonce issued for shop
func (s *NonceStore) SaveNonce(ctx context.Context, nonce string, shop string) error {
	if err := s.client.Set(ctx, noncePrefix+nonce, shop, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save nonce: %w", err)
	}
	return nil
}

// ConsumeNonce atomically reads and deletes a nonce
func (s *NonceStore) ConsumeNonce(ctx context.Context, nonce string) (string, bool, error) {
	shop, err := s.client.GetDel(ctx, noncePrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return shop, true, nil
}
