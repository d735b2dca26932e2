package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bundle-app-shopify-layer/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	deliveryPrefix = "webhook:delivery:"

	deliveryInProgress = "processing"
	deliveryDone       = "done"
)

// DefaultClaimTTL bounds how long an unfinished attempt blocks redeliveries
const DefaultClaimTTL = time.Minute

// DeliveryLedger tracks webhook delivery ids. A claim is written before the
// handler runs and only becomes a long-lived marker once the handler succeeded.
type DeliveryLedger struct {
	client   redis.Cmdable
	ttl      time.Duration
	claimTTL time.Duration
}

var _ ports.DeliveryLedger = (*DeliveryLedger)(nil)

// NewDeliveryLedger creates a ledger whose done markers expire after ttl and
// whose in-progress claims expire after claimTTL
func NewDeliveryLedger(client redis.Cmdable, ttl, claimTTL time.Duration) *DeliveryLedger {
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &DeliveryLedger{client: client, ttl: ttl, claimTTL: claimTTL}
}

// ClaimDelivery claims an unseen id, or reports whether it is in progress or done
func (l *DeliveryLedger) ClaimDelivery(ctx context.Context, webhookID string) (ports.DeliveryState, error) {
	key := deliveryPrefix + webhookID
	claimed, err := l.client.SetNX(ctx, key, deliveryInProgress, l.claimTTL).Result()
	if err != nil {
		return ports.DeliveryNew, fmt.Errorf("failed to claim delivery: %w", err)
	}
	if claimed {
		return ports.DeliveryNew, nil
	}

	value, err := l.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// the claim expired between SETNX and GET; let Shopify retry
		return ports.DeliveryInProgress, nil
	case err != nil:
		return ports.DeliveryNew, fmt.Errorf("failed to read delivery: %w", err)
	case value == deliveryDone:
		return ports.DeliveryDone, nil
	default:
		return ports.DeliveryInProgress, nil
	}
}

// CompleteDelivery turns the claim into a done marker
func (l *DeliveryLedger) CompleteDelivery(ctx context.Context, webhookID string) error {
	if err := l.client.Set(ctx, deliveryPrefix+webhookID, deliveryDone, l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete delivery: %w", err)
	}
	return nil
}

// ForgetDelivery removes a claim or marker
func (l *DeliveryLedger) ForgetDelivery(ctx context.Context, webhookID string) error {
	if err := l.client.Del(ctx, deliveryPrefix+webhookID).Err(); err != nil {
		return fmt.Errorf("failed to forget delivery: %w", err)
	}
	return nil
}
