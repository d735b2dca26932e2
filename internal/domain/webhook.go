package domain

import "time"

// Webhook topics handled by the app
const (
	TopicShopUpdate           = "shop/update"
	TopicAppUninstalled       = "app/uninstalled"
	TopicCustomersDataRequest = "customers/data_request"
	TopicCustomersRedact      = "customers/redact"
	TopicShopRedact           = "shop/redact"
)

// Webhook delivery outcomes recorded in the audit log
const (
	WebhookStatusProcessed  = "processed"
	WebhookStatusDuplicate  = "duplicate"
	WebhookStatusInProgress = "in_progress"
	WebhookStatusFailed     = "failed"
	WebhookStatusUnhandled  = "unhandled"
	WebhookStatusRejected   = "rejected"
)

// WebhookEvent represents a single webhook delivery received from Shopify
type WebhookEvent struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	WebhookID  string    `json:"webhook_id,omitempty"`
	APIVersion string    `json:"api_version,omitempty"`
	Payload    []byte    `json:"payload"`
	Verified   bool      `json:"verified"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
