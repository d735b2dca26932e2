package ports

import (
	"context"

	"bundle-app-shopify-layer/internal/domain"
)

// SessionRepository defines the interface for OAuth session persistence
type SessionRepository interface {
	// StoreSession creates or overwrites a session by ID
	StoreSession(ctx context.Context, session *domain.Session) error

	// LoadSession returns the session with the given ID, or nil when absent
	LoadSession(ctx context.Context, id string) (*domain.Session, error)

	// FindSessionsByShop returns every session stored for the shop
	FindSessionsByShop(ctx context.Context, shop string) ([]*domain.Session, error)

	// DeleteSessionsByShop removes every session stored for the shop
	DeleteSessionsByShop(ctx context.Context, shop string) (int64, error)
}

// WebhookEventRepository defines the interface for the webhook delivery audit log
type WebhookEventRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// NonceStore records OAuth state nonces so each one is accepted at most once
type NonceStore interface {
	SaveNonce(ctx context.Context, nonce string, shop string) error
	// ConsumeNonce returns the shop saved with the nonce and deletes it; ok is false
	// when the nonce was never saved, already used or expired
	ConsumeNonce(ctx context.Context, nonce string) (shop string, ok bool, err error)
}

// DeliveryState is what a DeliveryLedger knows about a webhook delivery id
type DeliveryState int

const (
	// DeliveryNew means the id was unseen and the caller now holds a short
	// in-progress claim on it
	DeliveryNew DeliveryState = iota
	// DeliveryInProgress means another attempt holds an unexpired claim
	DeliveryInProgress
	// DeliveryDone means an earlier attempt completed
	DeliveryDone
)

// DeliveryLedger remembers webhook delivery ids so redeliveries are acknowledged
// without running handlers twice. A claim expires on its own, so an attempt
// that never finishes can be retried.
type DeliveryLedger interface {
	ClaimDelivery(ctx context.Context, webhookID string) (DeliveryState, error)
	// CompleteDelivery marks the id done once its handler succeeded
	CompleteDelivery(ctx context.Context, webhookID string) error
	// ForgetDelivery releases the claim so a failed delivery can be retried
	ForgetDelivery(ctx context.Context, webhookID string) error
}

// InvalidationRelay carries cache invalidation signals from webhook handlers to
// the polling endpoint
type InvalidationRelay interface {
	Publish(shop string, changes map[string]interface{}, invalidationType string) *domain.InvalidationSignal
	Poll(shop string) *domain.InvalidationSignal
}

// EncryptionService encrypts secrets stored at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
