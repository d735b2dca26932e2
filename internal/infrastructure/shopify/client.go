package shopify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bundle-app-shopify-layer/internal/infrastructure/metrics"
	"bundle-app-shopify-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin API version used when none is configured
const DefaultAPIVersion = "2025-01"

// RetryConfig controls how many times go-shopify retries throttled or failed calls
type RetryConfig struct {
	MaxRetries int
}

// DefaultRetryConfig returns the retry policy used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3}
}

// Client adapts go-shopify to the ports.ShopifyClient interface
type Client struct {
	apiKey      string
	apiSecret   string
	apiVersion  string
	app         goshopify.App
	tokens      *TokenManager
	rateLimiter *RateLimiter
	retryConfig RetryConfig
	logger      zerolog.Logger
}

var _ ports.ShopifyClient = (*Client)(nil)

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string) *Client {
	return NewClientWithOptions(apiKey, apiSecret, DefaultAPIVersion, nil, DefaultRetryConfig(), zerolog.Nop())
}

// NewClientWithOptions creates a client with rate limiting and retry options
func NewClientWithOptions(
	apiKey, apiSecret, apiVersion string,
	rateLimiter *RateLimiter,
	retryConfig RetryConfig,
	logger zerolog.Logger,
) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &Client{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		apiVersion:  apiVersion,
		app:         app,
		tokens:      NewTokenManager(app, logger),
		rateLimiter: rateLimiter,
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *Client) createClient(shop string, accessToken string) (*goshopify.Client, error) {
	opts := []goshopify.Option{goshopify.WithVersion(c.apiVersion)}
	if c.retryConfig.MaxRetries > 0 {
		opts = append(opts, goshopify.WithRetry(c.retryConfig.MaxRetries))
	}
	client, err := goshopify.NewClient(c.app, shop, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (c *Client) wait(ctx context.Context, shop string) error {
	if c.rateLimiter == nil {
		return nil
	}
	return c.rateLimiter.Wait(ctx, shop)
}

// Authentication methods

func (c *Client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes to be comma-separated (no spaces)
	scopesStr := strings.Join(scopes, ",")

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("scope", scopesStr)
	values.Set("redirect_uri", redirectURI)
	values.Set("state", state)

	authURL := fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, values.Encode())

	c.logger.Info().
		Str("shop", shop).
		Str("scopes", scopesStr).
		Int("scope_count", len(scopes)).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

func (c *Client) ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (*ports.AccessTokenResponse, error) {
	start := time.Now()
	resp, err := c.tokens.Exchange(ctx, shop, code, redirectURI)
	metrics.RecordShopifyCall("oauth.access_token", time.Since(start), err)
	return resp, err
}

// VerifyCallbackHMAC checks the hmac parameter of an OAuth callback query string
func (c *Client) VerifyCallbackHMAC(query string) (bool, error) {
	u, err := url.Parse("/?" + query)
	if err != nil {
		return false, fmt.Errorf("failed to parse callback query: %w", err)
	}
	ok, err := c.app.VerifyAuthorizationURL(u)
	if err != nil {
		return false, fmt.Errorf("failed to verify callback hmac: %w", err)
	}
	return ok, nil
}

// VerifyWebhookHMAC checks X-Shopify-Hmac-Sha256 against the raw delivery body
func (c *Client) VerifyWebhookHMAC(payload []byte, hmacHeader string) bool {
	if hmacHeader == "" {
		return false
	}
	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("X-Shopify-Hmac-Sha256", hmacHeader)
	return c.app.VerifyWebhookRequest(req)
}

// Admin GraphQL API

// Query runs a GraphQL document against the shop's Admin API and decodes the
// data object into out
func (c *Client) Query(ctx context.Context, shop string, accessToken string, query string, variables map[string]interface{}, out interface{}) error {
	operation, err := OperationName(query)
	if err != nil {
		return err
	}

	if err := c.wait(ctx, shop); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	client, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}

	start := time.Now()
	err = client.GraphQL.Query(ctx, query, variables, out)
	metrics.RecordShopifyCall(operation, time.Since(start), err)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("shop", shop).
			Str("operation", operation).
			Msg("Admin GraphQL query failed")
		return fmt.Errorf("failed to run %s query: %w", operation, err)
	}

	return nil
}

// Webhook API

func (c *Client) CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	if err := c.wait(ctx, shop); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	client, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	start := time.Now()
	created, err := client.Webhook.Create(ctx, webhook)
	metrics.RecordShopifyCall("webhooks.create", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return created, nil
}

func (c *Client) ListWebhooks(ctx context.Context, shop string, accessToken string) ([]goshopify.Webhook, error) {
	if err := c.wait(ctx, shop); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	client, err := c.createClient(shop, accessToken)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	webhooks, err := client.Webhook.List(ctx, nil)
	metrics.RecordShopifyCall("webhooks.list", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	return webhooks, nil
}
