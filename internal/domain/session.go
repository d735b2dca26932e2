package domain

import (
	"strings"
	"time"
)

const offlineSessionPrefix = "offline_"

// Session represents a persisted OAuth credential for one shop
type Session struct {
	ID          string    `json:"id" bson:"_id"`
	Shop        string    `json:"shop" bson:"shop"`
	AccessToken string    `json:"-" bson:"access_token"`
	Scope       string    `json:"scope" bson:"scope"`
	IsOnline    bool      `json:"is_online" bson:"is_online"`
	State       string    `json:"state,omitempty" bson:"state,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// OfflineSessionID returns the id under which the offline session for shop is stored
func OfflineSessionID(shop string) string {
	return offlineSessionPrefix + shop
}

// NewOfflineSession creates the offline session persisted after a successful OAuth callback
func NewOfflineSession(shop, accessToken, scope, state string) *Session {
	now := time.Now()
	return &Session{
		ID:          OfflineSessionID(shop),
		Shop:        shop,
		AccessToken: accessToken,
		Scope:       scope,
		IsOnline:    false,
		State:       state,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Scopes returns the granted scopes as a slice
func (s *Session) Scopes() []string {
	if s.Scope == "" {
		return nil
	}
	parts := strings.Split(s.Scope, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}

// IsActive reports whether the session carries a usable access token
func (s *Session) IsActive() bool {
	return s != nil && s.AccessToken != ""
}
