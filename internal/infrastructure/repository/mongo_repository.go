package repository

import (
	"context"
	"fmt"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/infrastructure/repository/entity"
	"bundle-app-shopify-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository implements session storage and the webhook audit log using MongoDB
type MongoRepository struct {
	sessionsCollection *mongo.Collection
	webhooksCollection *mongo.Collection
}

var (
	_ ports.SessionRepository      = (*MongoRepository)(nil)
	_ ports.WebhookEventRepository = (*MongoRepository)(nil)
)

// NewMongoRepository creates a new MongoDB repository
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		sessionsCollection: db.Collection("sessions"),
		webhooksCollection: db.Collection("webhook_events"),
	}
}

// EnsureIndexes creates the indexes the repository queries rely on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.sessionsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create sessions index: %w", err)
	}

	_, err = r.webhooksCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shop", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "webhookId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook events index: %w", err)
	}

	return nil
}

// StoreSession saves or overwrites a session
func (r *MongoRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	doc := entity.MongoSessionDocFromDomain(session)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	opts := options.Replace().SetUpsert(true)
	_, err := r.sessionsCollection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// LoadSession retrieves a session by ID
func (r *MongoRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	var doc entity.MongoSessionDoc
	err := r.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return doc.ToDomain(), nil
}

// FindSessionsByShop retrieves all sessions for a shop
func (r *MongoRepository) FindSessionsByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	cursor, err := r.sessionsCollection.Find(ctx, bson.M{"shop": shop})
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	for cursor.Next(ctx) {
		var doc entity.MongoSessionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		sessions = append(sessions, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return sessions, nil
}

// DeleteSessionsByShop removes all sessions for a shop
func (r *MongoRepository) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	result, err := r.sessionsCollection.DeleteMany(ctx, bson.M{"shop": shop})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// LogWebhook logs a webhook event
func (r *MongoRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := entity.MongoWebhookEventDocFromDomain(event)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.webhooksCollection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}

	return nil
}
