package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/infrastructure/metrics"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/rs/zerolog"
)

// CallbackPath is where Shopify sends the merchant after authorization
const CallbackPath = "/api/auth/callback"

// OAuthConfig holds the app settings the OAuth flow needs
type OAuthConfig struct {
	Scopes []string
	// Host is the public base URL of the app, without a trailing slash
	Host string
	// PostAuthRedirect is where merchants land after install; defaults to Host + "/"
	PostAuthRedirect string
}

// OAuthService drives app installation: the authorization redirect and the callback
type OAuthService struct {
	config    OAuthConfig
	client    ports.ShopifyClient
	sessions  ports.SessionRepository
	states    *StateSigner
	nonces    ports.NonceStore
	registrar *WebhookRegistrar
	logger    zerolog.Logger
}

// NewOAuthService creates a new OAuth service. nonces and registrar may be nil.
func NewOAuthService(
	config OAuthConfig,
	client ports.ShopifyClient,
	sessions ports.SessionRepository,
	states *StateSigner,
	nonces ports.NonceStore,
	registrar *WebhookRegistrar,
	logger zerolog.Logger,
) *OAuthService {
	config.Host = strings.TrimSuffix(config.Host, "/")
	if config.PostAuthRedirect == "" {
		config.PostAuthRedirect = config.Host + "/"
	}
	return &OAuthService{
		config:    config,
		client:    client,
		sessions:  sessions,
		states:    states,
		nonces:    nonces,
		registrar: registrar,
		logger:    logger,
	}
}

// RedirectURI returns the callback URL registered with Shopify
func (s *OAuthService) RedirectURI() string {
	return s.config.Host + CallbackPath
}

// Initiate validates the shop and returns the Shopify authorization URL
func (s *OAuthService) Initiate(ctx context.Context, shop string, returnTo string) (string, error) {
	if strings.TrimSpace(shop) == "" {
		return "", &domain.ValidationError{Field: "shop", Message: "Missing shop parameter"}
	}
	shop = domain.NormalizeShop(shop)
	if !domain.IsValidShopDomain(shop) {
		return "", &domain.ValidationError{Field: "shop", Message: "Invalid shop parameter"}
	}

	token, state, err := s.states.Sign(shop, sanitizeReturnTo(returnTo))
	if err != nil {
		return "", err
	}

	if s.nonces != nil {
		if err := s.nonces.SaveNonce(ctx, state.Nonce, shop); err != nil {
			return "", fmt.Errorf("failed to save oauth nonce: %w", err)
		}
	}

	authURL, err := s.client.GenerateAuthURL(shop, s.config.Scopes, s.RedirectURI(), token)
	if err != nil {
		return "", fmt.Errorf("failed to generate auth URL: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("nonce", state.Nonce).
		Msg("Redirecting merchant to Shopify authorization")

	return authURL, nil
}

// Callback verifies the authorization response, exchanges the code for an
// offline access token, stores the session and returns the post-install
// redirect URL
func (s *OAuthService) Callback(ctx context.Context, query url.Values) (string, error) {
	code := query.Get("code")
	shop := domain.NormalizeShop(query.Get("shop"))
	if code == "" || shop == "" {
		metrics.RecordOAuthCallback("invalid")
		return "", &domain.ValidationError{Field: "code", Message: "Missing code or shop parameter"}
	}
	if !domain.IsValidShopDomain(shop) {
		metrics.RecordOAuthCallback("invalid")
		return "", &domain.ValidationError{Field: "shop", Message: "Invalid shop parameter"}
	}

	if query.Get("hmac") != "" {
		ok, err := s.client.VerifyCallbackHMAC(query.Encode())
		if err != nil || !ok {
			metrics.RecordOAuthCallback("invalid")
			s.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback HMAC verification failed")
			return "", &domain.ValidationError{Field: "hmac", Message: "Invalid callback signature"}
		}
	}

	returnTo := sanitizeReturnTo(query.Get("return_to"))
	nonce := ""
	if raw := query.Get("state"); raw != "" {
		state, err := s.verifyState(ctx, raw, shop)
		if err != nil {
			metrics.RecordOAuthCallback("invalid")
			s.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth state rejected")
			return "", &domain.ValidationError{Field: "state", Message: "Invalid state parameter"}
		}
		nonce = state.Nonce
		if returnTo == "" {
			returnTo = state.ReturnTo
		}
	}

	token, err := s.client.ExchangeToken(ctx, shop, code, s.RedirectURI())
	if err != nil {
		metrics.RecordOAuthCallback("exchange_failed")
		s.logger.Error().Err(err).Str("shop", shop).Msg("OAuth code exchange failed")
		return "", &domain.AuthError{Message: "Authentication failed", Status: http.StatusInternalServerError, Err: err}
	}

	session := domain.NewOfflineSession(shop, token.AccessToken, token.Scope, nonce)
	if err := s.sessions.StoreSession(ctx, session); err != nil {
		metrics.RecordOAuthCallback("store_failed")
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Str("scope", token.Scope).
		Msg("Stored offline session")

	if s.registrar != nil {
		if err := s.registrar.RegisterDefaults(ctx, shop, token.AccessToken); err != nil {
			s.logger.Warn().Err(err).Str("shop", shop).Msg("Webhook registration incomplete")
		}
	}

	metrics.RecordOAuthCallback("success")
	return s.postAuthURL(shop, query.Get("host"), returnTo)
}

func (s *OAuthService) verifyState(ctx context.Context, raw string, shop string) (*OAuthState, error) {
	state, err := s.states.Verify(raw)
	if err != nil {
		return nil, err
	}
	if state.Shop != shop {
		return nil, fmt.Errorf("state issued for %s, callback for %s", state.Shop, shop)
	}
	if s.nonces != nil {
		savedShop, ok, err := s.nonces.ConsumeNonce(ctx, state.Nonce)
		if err != nil {
			return nil, fmt.Errorf("failed to consume nonce: %w", err)
		}
		if !ok || savedShop != shop {
			return nil, fmt.Errorf("nonce already used or unknown")
		}
	}
	return state, nil
}

func (s *OAuthService) postAuthURL(shop, host, returnTo string) (string, error) {
	target := s.config.PostAuthRedirect
	if returnTo != "" {
		target = s.config.Host + returnTo
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("failed to parse post-auth redirect: %w", err)
	}
	q := u.Query()
	q.Set("shop", shop)
	if host != "" {
		q.Set("host", host)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sanitizeReturnTo only accepts app-relative paths so the callback can't be
// used as an open redirect
func sanitizeReturnTo(returnTo string) string {
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") || strings.Contains(returnTo, `\`) {
		return ""
	}
	return returnTo
}
