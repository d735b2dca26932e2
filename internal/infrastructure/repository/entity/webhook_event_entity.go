package entity

import (
	"time"

	"bundle-app-shopify-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookEventDoc represents a webhook delivery in the audit log
type MongoWebhookEventDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EventID    string             `bson:"eventId"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	WebhookID  string             `bson:"webhookId,omitempty"`
	APIVersion string             `bson:"apiVersion,omitempty"`
	Payload    string             `bson:"payload"`
	Verified   bool               `bson:"verified"`
	Status     string             `bson:"status"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// MongoWebhookEventDocFromDomain converts a domain entity to a MongoDB document
func MongoWebhookEventDocFromDomain(event *domain.WebhookEvent) *MongoWebhookEventDoc {
	return &MongoWebhookEventDoc{
		EventID:    event.ID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		WebhookID:  event.WebhookID,
		APIVersion: event.APIVersion,
		Payload:    string(event.Payload),
		Verified:   event.Verified,
		Status:     event.Status,
		CreatedAt:  event.CreatedAt,
	}
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoWebhookEventDoc) ToDomain() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:         d.EventID,
		Topic:      d.Topic,
		Shop:       d.Shop,
		WebhookID:  d.WebhookID,
		APIVersion: d.APIVersion,
		Payload:    []byte(d.Payload),
		Verified:   d.Verified,
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
	}
}
