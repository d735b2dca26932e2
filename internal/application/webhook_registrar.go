package application

import (
	"context"
	"errors"
	"fmt"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// WebhookPath is the route Shopify delivers webhooks to
const WebhookPath = "/api/webhooks"

// DefaultWebhookTopics are subscribed for every shop after install. The
// compliance topics are configured in the Partner Dashboard instead.
var DefaultWebhookTopics = []string{
	domain.TopicAppUninstalled,
	domain.TopicShopUpdate,
}

// WebhookRegistrar subscribes shops to the app's webhook topics
type WebhookRegistrar struct {
	client  ports.ShopifyClient
	address string
	topics  []string
	logger  zerolog.Logger
}

// NewWebhookRegistrar creates a registrar delivering to host + WebhookPath
func NewWebhookRegistrar(client ports.ShopifyClient, host string, topics []string, logger zerolog.Logger) *WebhookRegistrar {
	if len(topics) == 0 {
		topics = DefaultWebhookTopics
	}
	return &WebhookRegistrar{
		client:  client,
		address: host + WebhookPath,
		topics:  topics,
		logger:  logger,
	}
}

// RegisterDefaults creates any missing subscriptions. Existing subscriptions
// for the same topic and address are left alone.
func (r *WebhookRegistrar) RegisterDefaults(ctx context.Context, shop string, accessToken string) error {
	existing, err := r.client.ListWebhooks(ctx, shop, accessToken)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}

	subscribed := make(map[string]bool, len(existing))
	for _, wh := range existing {
		if wh.Address == r.address {
			subscribed[wh.Topic] = true
		}
	}

	var errs []error
	for _, topic := range r.topics {
		if subscribed[topic] {
			continue
		}
		if _, err := r.client.CreateWebhook(ctx, shop, accessToken, topic, r.address); err != nil {
			r.logger.Warn().Err(err).Str("shop", shop).Str("topic", topic).Msg("Failed to create webhook subscription")
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		r.logger.Info().Str("shop", shop).Str("topic", topic).Msg("Created webhook subscription")
	}

	return errors.Join(errs...)
}
