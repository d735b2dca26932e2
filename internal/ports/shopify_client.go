package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// AccessTokenResponse is the result of exchanging an OAuth authorization code
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ShopifyClient defines the interface for Shopify API operations
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (*AccessTokenResponse, error)
	VerifyCallbackHMAC(query string) (bool, error)
	VerifyWebhookHMAC(payload []byte, hmacHeader string) bool

	// Admin GraphQL API
	Query(ctx context.Context, shop string, accessToken string, query string, variables map[string]interface{}, out interface{}) error

	// Webhook API
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*shopify.Webhook, error)
	ListWebhooks(ctx context.Context, shop string, accessToken string) ([]shopify.Webhook, error)
}
