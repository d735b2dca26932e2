package entity

import (
	"time"

	"bundle-app-shopify-layer/internal/domain"
)

// MongoSessionDoc represents an OAuth session in MongoDB
type MongoSessionDoc struct {
	ID          string    `bson:"_id"`
	Shop        string    `bson:"shop"`
	AccessToken string    `bson:"accessToken"`
	Scope       string    `bson:"scope"`
	IsOnline    bool      `bson:"isOnline"`
	State       string    `bson:"state,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSessionDoc) ToDomain() *domain.Session {
	return &domain.Session{
		ID:          d.ID,
		Shop:        d.Shop,
		AccessToken: d.AccessToken,
		Scope:       d.Scope,
		IsOnline:    d.IsOnline,
		State:       d.State,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoSessionDocFromDomain converts a domain entity to a MongoDB document
func MongoSessionDocFromDomain(session *domain.Session) *MongoSessionDoc {
	return &MongoSessionDoc{
		ID:          session.ID,
		Shop:        session.Shop,
		AccessToken: session.AccessToken,
		Scope:       session.Scope,
		IsOnline:    session.IsOnline,
		State:       session.State,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}
