package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bundle-app-shopify-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// TokenManager exchanges OAuth authorization codes for offline access tokens
type TokenManager struct {
	app        goshopify.App
	httpClient *http.Client
	tokenURL   func(shop string) string
	logger     zerolog.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(app goshopify.App, logger zerolog.Logger) *TokenManager {
	return &TokenManager{
		app:        app,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokenURL: func(shop string) string {
			return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
		},
		logger: logger,
	}
}

// Exchange trades a one-time code for an access token. Codes are single use, so
// the call is never retried.
func (tm *TokenManager) Exchange(ctx context.Context, shop string, code string, redirectURI string) (*ports.AccessTokenResponse, error) {
	// Shopify requires the redirect_uri parameter to match the one used in authorization.
	// go-shopify's GetAccessToken doesn't send redirect_uri, so we make a direct HTTP call.
	if redirectURI == "" {
		token, err := tm.app.GetAccessToken(ctx, shop, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange token: %w", err)
		}
		return &ports.AccessTokenResponse{AccessToken: token}, nil
	}

	values := url.Values{}
	values.Set("client_id", tm.app.ApiKey)
	values.Set("client_secret", tm.app.ApiSecret)
	values.Set("code", code)
	values.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.tokenURL(shop), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		tm.logger.Warn().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			Msg("Access token exchange rejected")
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse ports.AccessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResponse.AccessToken == "" {
		return nil, fmt.Errorf("failed to exchange token: response has no access_token")
	}

	return &tokenResponse, nil
}
