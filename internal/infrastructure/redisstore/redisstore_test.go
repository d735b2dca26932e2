package redisstore

import (
	"context"
	"testing"
	"time"

	"bundle-app-shopify-layer/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNonceStoreSingleUse(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	store := NewNonceStore(client, 10*time.Minute)

	require.NoError(t, store.SaveNonce(ctx, "n-1", "acme.myshopify.com"))

	shop, ok, err := store.ConsumeNonce(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acme.myshopify.com", shop)

	_, ok, err = store.ConsumeNonce(ctx, "n-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonceStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	store := NewNonceStore(client, time.Minute)

	require.NoError(t, store.SaveNonce(ctx, "n-2", "acme.myshopify.com"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.ConsumeNonce(ctx, "n-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeliveryLedger(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	ledger := NewDeliveryLedger(client, time.Hour, time.Minute)

	state, err := ledger.ClaimDelivery(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryNew, state)

	state, err = ledger.ClaimDelivery(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryInProgress, state)

	require.NoError(t, ledger.CompleteDelivery(ctx, "wh-1"))
	state, err = ledger.ClaimDelivery(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryDone, state)
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(deliveryPrefix+"wh-1").Seconds(), 1)

	mr.FastForward(2 * time.Hour)
	state, err = ledger.ClaimDelivery(ctx, "wh-1")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryNew, state)
}

func TestDeliveryLedgerForgetReleasesClaim(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	ledger := NewDeliveryLedger(client, time.Hour, time.Minute)

	_, err := ledger.ClaimDelivery(ctx, "wh-2")
	require.NoError(t, err)
	require.NoError(t, ledger.ForgetDelivery(ctx, "wh-2"))

	state, err := ledger.ClaimDelivery(ctx, "wh-2")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryNew, state)
}

func TestDeliveryLedgerAbandonedClaimExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	ledger := NewDeliveryLedger(client, time.Hour, 30*time.Second)

	_, err := ledger.ClaimDelivery(ctx, "wh-3")
	require.NoError(t, err)

	// the attempt never completes, e.g. the process died mid-handler
	mr.FastForward(time.Minute)
	state, err := ledger.ClaimDelivery(ctx, "wh-3")
	require.NoError(t, err)
	assert.Equal(t, ports.DeliveryNew, state)
}

func TestNewClientFallsBackToAddr(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	client, err = NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()
}

func TestConnectionErrorsSurface(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	_, _, err := NewNonceStore(client, time.Minute).ConsumeNonce(context.Background(), "n")
	assert.Error(t, err)

	_, err = NewDeliveryLedger(client, time.Minute, 0).ClaimDelivery(context.Background(), "wh")
	assert.Error(t, err)
}
