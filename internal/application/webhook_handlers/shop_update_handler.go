package webhook_handlers

import (
	"context"
	"fmt"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// shopUpdateFields maps the shop/update fields the admin UI caches to their
// settings keys
var shopUpdateFields = []struct {
	payload string
	setting string
}{
	{"currency", "currencyCode"},
	{"primary_locale", "locale"},
	{"money_format", "moneyFormat"},
	{"name", "shopName"},
}

// ShopUpdateHandler turns shop/update deliveries into cache invalidation signals
type ShopUpdateHandler struct {
	logger   zerolog.Logger
	relay    ports.InvalidationRelay
	settings *application.SettingsService
}

// NewShopUpdateHandler creates a new shop update webhook handler
func NewShopUpdateHandler(
	logger zerolog.Logger,
	relay ports.InvalidationRelay,
	settings *application.SettingsService,
) *ShopUpdateHandler {
	return &ShopUpdateHandler{
		logger:   logger,
		relay:    relay,
		settings: settings,
	}
}

// Topics returns the topics this handler is registered for
func (h *ShopUpdateHandler) Topics() []string {
	return []string{domain.TopicShopUpdate}
}

// CanHandle returns true if this handler can process the given topic
func (h *ShopUpdateHandler) CanHandle(topic string) bool {
	return topic == domain.TopicShopUpdate
}

// Handle publishes the changed settings for the shop. Fields that are missing
// or of the wrong type are skipped; a payload without any tracked field is
// acknowledged without publishing.
func (h *ShopUpdateHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	fields, ok, err := payloadFields(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse shop update webhook payload: %w", err)
	}
	if !ok {
		h.logger.Warn().
			Str("shop", event.Shop).
			Msg("Shop update payload is not an object, ignoring")
		return nil
	}
	if event.Shop == "" {
		h.logger.Warn().Msg("Shop update webhook has no shop, ignoring")
		return nil
	}

	changes := make(map[string]interface{})
	for _, f := range shopUpdateFields {
		value, ok := stringField(fields, f.payload)
		if !ok {
			if _, present := fields[f.payload]; present {
				h.logger.Debug().
					Str("shop", event.Shop).
					Str("field", f.payload).
					Msg("Skipping shop update field with unexpected type")
			}
			continue
		}
		changes[f.setting] = value
	}

	if len(changes) == 0 {
		h.logger.Debug().
			Str("shop", event.Shop).
			Msg("Shop update carried no tracked settings")
		return nil
	}

	if h.settings != nil {
		h.settings.Invalidate(event.Shop)
	}
	h.relay.Publish(event.Shop, changes, domain.InvalidationShopUpdate)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int("changed", len(changes)).
		Msg("Processed shop update webhook event")

	return nil
}
