package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	sessionKey contextKey = "session"
	shopKey    contextKey = "shop"
)

// WithSession stores the verified session in the context
func WithSession(ctx context.Context, session *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, session)
	if session != nil {
		ctx = WithShop(ctx, session.Shop)
	}
	return ctx
}

// SessionFromContext returns the verified session, or nil
func SessionFromContext(ctx context.Context) *Session {
	if session, ok := ctx.Value(sessionKey).(*Session); ok {
		return session
	}
	return nil
}

// WithShop stores the shop domain in the context
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopKey, shop)
}

// GetShopFromContext returns the shop domain stored in the context
func GetShopFromContext(ctx context.Context) string {
	if shop, ok := ctx.Value(shopKey).(string); ok {
		return shop
	}
	return ""
}
