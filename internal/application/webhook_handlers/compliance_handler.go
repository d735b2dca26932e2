package webhook_handlers

import (
	"context"
	"encoding/json"

	"bundle-app-shopify-layer/internal/domain"

	"github.com/rs/zerolog"
)

// ComplianceHandler acknowledges the mandatory privacy webhooks. The app keeps
// no customer data, so there is nothing to export or erase.
type ComplianceHandler struct {
	logger zerolog.Logger
}

// NewComplianceHandler creates a new compliance webhook handler
func NewComplianceHandler(logger zerolog.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		logger: logger,
	}
}

// Topics returns the topics this handler is registered for
func (h *ComplianceHandler) Topics() []string {
	return []string{
		domain.TopicCustomersDataRequest,
		domain.TopicCustomersRedact,
		domain.TopicShopRedact,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *ComplianceHandler) CanHandle(topic string) bool {
	return topic == domain.TopicCustomersDataRequest ||
		topic == domain.TopicCustomersRedact ||
		topic == domain.TopicShopRedact
}

// Handle logs the request
func (h *ComplianceHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var request struct {
		ShopDomain string `json:"shop_domain"`
		Customer   *struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	// Best effort: the log line is all we produce
	_ = json.Unmarshal(event.Payload, &request)

	logEvent := h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop)
	if request.Customer != nil {
		logEvent = logEvent.Int64("customerId", request.Customer.ID)
	}
	logEvent.Msg("Compliance webhook acknowledged, no customer data stored")

	return nil
}
