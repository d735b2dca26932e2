package webhook_handlers

import (
	"context"
	"fmt"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
	relay    ports.InvalidationRelay
	settings *application.SettingsService
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(
	logger zerolog.Logger,
	sessions ports.SessionRepository,
	relay ports.InvalidationRelay,
	settings *application.SettingsService,
) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		sessions: sessions,
		relay:    relay,
		settings: settings,
	}
}

// Topics returns the topics this handler is registered for
func (h *AppUninstalledHandler) Topics() []string {
	return []string{domain.TopicAppUninstalled}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic string) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle removes the shop's sessions. Redeliveries find nothing to delete and
// succeed.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shopDomain := event.Shop
	if shopDomain == "" {
		fields, ok, err := payloadFields(event.Payload)
		if err != nil {
			return fmt.Errorf("failed to parse app uninstalled webhook payload: %w", err)
		}
		if ok {
			shopDomain, _ = stringField(fields, "myshopify_domain")
			if shopDomain == "" {
				shopDomain, _ = stringField(fields, "domain")
			}
			shopDomain = domain.NormalizeShop(shopDomain)
		}
	}
	if shopDomain == "" {
		h.logger.Warn().
			Str("topic", event.Topic).
			Msg("App uninstalled webhook has no shop, nothing to clean up")
		return nil
	}

	deleted, err := h.sessions.DeleteSessionsByShop(ctx, shopDomain)
	if err != nil {
		return fmt.Errorf("failed to delete sessions for %s: %w", shopDomain, err)
	}

	if h.settings != nil {
		h.settings.Forget(shopDomain)
	}
	h.relay.Publish(shopDomain, nil, domain.InvalidationAppUninstalled)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", shopDomain).
		Int64("sessionsDeleted", deleted).
		Msg("App uninstalled - cleanup completed")

	return nil
}
