package application

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/infrastructure/metrics"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Shopify webhook delivery headers
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderAPIVersion = "X-Shopify-API-Version"
)

// WebhookDispatcher verifies webhook deliveries and routes them to handlers
type WebhookDispatcher struct {
	client    ports.ShopifyClient
	registry  *HandlerRegistry
	ledger    ports.DeliveryLedger
	auditLog  ports.WebhookEventRepository
	logger    zerolog.Logger
	auditWait time.Duration
}

// NewWebhookDispatcher creates a dispatcher. ledger and auditLog may be nil.
func NewWebhookDispatcher(
	client ports.ShopifyClient,
	registry *HandlerRegistry,
	ledger ports.DeliveryLedger,
	auditLog ports.WebhookEventRepository,
	logger zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		client:    client,
		registry:  registry,
		ledger:    ledger,
		auditLog:  auditLog,
		logger:    logger,
		auditWait: 2 * time.Second,
	}
}

// Process handles one delivery and returns the status code to send back to
// Shopify. Non-2xx responses make Shopify redeliver.
func (d *WebhookDispatcher) Process(ctx context.Context, rawBody []byte, r *http.Request) int {
	topic := r.Header.Get(HeaderTopic)
	event := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		Topic:      topic,
		Shop:       domain.NormalizeShop(r.Header.Get(HeaderShopDomain)),
		WebhookID:  r.Header.Get(HeaderWebhookID),
		APIVersion: r.Header.Get(HeaderAPIVersion),
		Payload:    rawBody,
		CreatedAt:  time.Now().UTC(),
	}

	log := d.logger.With().
		Str("topic", topic).
		Str("shop", event.Shop).
		Str("webhookId", event.WebhookID).
		Logger()

	if !d.client.VerifyWebhookHMAC(rawBody, r.Header.Get(HeaderHmac)) {
		log.Warn().Msg("Webhook HMAC verification failed")
		metrics.RecordWebhookDelivery(topic, domain.WebhookStatusRejected)
		return http.StatusUnauthorized
	}
	event.Verified = true

	if topic == "" {
		log.Warn().Msg("Webhook delivery has no topic")
		metrics.RecordWebhookDelivery(topic, domain.WebhookStatusRejected)
		return http.StatusBadRequest
	}

	d.registry.EnsureRegistered()

	handler, ok := d.registry.Lookup(topic)
	if !ok {
		log.Warn().Msg("No handler registered for topic, re-registering defaults")
		metrics.RecordReregistration()
		d.registry.RegisterDefaults()
		handler, ok = d.registry.Lookup(topic)
	}
	if !ok {
		log.Error().Msg("No handler for topic after re-registration")
		d.finish(ctx, event, domain.WebhookStatusUnhandled)
		return http.StatusInternalServerError
	}

	claimed := false
	if d.ledger != nil && event.WebhookID != "" {
		state, err := d.ledger.ClaimDelivery(ctx, event.WebhookID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("Delivery ledger unavailable, processing anyway")
		case state == ports.DeliveryDone:
			log.Info().Msg("Duplicate webhook delivery acknowledged")
			d.finish(ctx, event, domain.WebhookStatusDuplicate)
			return http.StatusOK
		case state == ports.DeliveryInProgress:
			// a non-2xx answer makes Shopify retry once the running attempt settles
			log.Info().Msg("Webhook delivery already in progress")
			d.finish(ctx, event, domain.WebhookStatusInProgress)
			return http.StatusConflict
		default:
			claimed = true
		}
	}

	// the ledger must be updated even when Shopify gave up on this request
	ledgerCtx := context.WithoutCancel(ctx)

	if err := d.invoke(ctx, handler, event); err != nil {
		log.Error().Err(err).Msg("Webhook handler failed")
		if claimed {
			if ferr := d.ledger.ForgetDelivery(ledgerCtx, event.WebhookID); ferr != nil {
				log.Warn().Err(ferr).Msg("Failed to release delivery claim")
			}
		}
		d.finish(ctx, event, domain.WebhookStatusFailed)
		return http.StatusInternalServerError
	}

	if claimed {
		if err := d.ledger.CompleteDelivery(ledgerCtx, event.WebhookID); err != nil {
			log.Warn().Err(err).Msg("Failed to mark delivery done")
		}
	}

	log.Info().Msg("Webhook processed")
	d.finish(ctx, event, domain.WebhookStatusProcessed)
	return http.StatusOK
}

// invoke runs the handler, turning a panic into an error
func (d *WebhookDispatcher) invoke(ctx context.Context, handler WebhookHandler, event *domain.WebhookEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().
				Str("topic", event.Topic).
				Str("stack", string(debug.Stack())).
				Msg("Webhook handler panicked")
			err = &domain.UpstreamError{Op: "webhook " + event.Topic, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	return handler.Handle(ctx, event)
}

// finish records metrics and writes the audit row without failing the delivery
func (d *WebhookDispatcher) finish(ctx context.Context, event *domain.WebhookEvent, status string) {
	event.Status = status
	metrics.RecordWebhookDelivery(event.Topic, status)

	if d.auditLog == nil {
		return
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.auditWait)
	defer cancel()
	if err := d.auditLog.LogWebhook(auditCtx, event); err != nil {
		d.logger.Warn().Err(err).Str("topic", event.Topic).Msg("Failed to write webhook audit log")
	}
}
