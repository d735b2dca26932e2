package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bundle-app-shopify-layer/internal/application"
	"bundle-app-shopify-layer/internal/application/webhook_handlers"
	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/infrastructure/pubsub"
	"bundle-app-shopify-layer/internal/infrastructure/repository"
	"bundle-app-shopify-layer/internal/ports"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shop      = "acme.myshopify.com"
	host      = "https://bundles.example.com"
	apiKey    = "api-key"
	apiSecret = "api-secret-value"
	validHmac = "valid-signature"
)

// stubClient stands in for the Shopify Admin API
type stubClient struct {
	exchangeErr error
	queryErr    error
	queryBody   string
}

func (c *stubClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	v := url.Values{"client_id": {apiKey}, "scope": {strings.Join(scopes, ",")}, "redirect_uri": {redirectURI}, "state": {state}}
	return "https://" + shop + "/admin/oauth/authorize?" + v.Encode(), nil
}

func (c *stubClient) ExchangeToken(ctx context.Context, shop, code, redirectURI string) (*ports.AccessTokenResponse, error) {
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return &ports.AccessTokenResponse{AccessToken: "shpat_" + code, Scope: "read_products"}, nil
}

func (c *stubClient) VerifyCallbackHMAC(query string) (bool, error) { return true, nil }

func (c *stubClient) VerifyWebhookHMAC(payload []byte, header string) bool {
	return header == validHmac
}

func (c *stubClient) Query(ctx context.Context, shop, token, query string, vars map[string]interface{}, out interface{}) error {
	if c.queryErr != nil {
		return c.queryErr
	}
	return json.Unmarshal([]byte(c.queryBody), out)
}

func (c *stubClient) CreateWebhook(ctx context.Context, shop, token, topic, address string) (*shopify.Webhook, error) {
	return &shopify.Webhook{Topic: topic, Address: address}, nil
}

func (c *stubClient) ListWebhooks(ctx context.Context, shop, token string) ([]shopify.Webhook, error) {
	return nil, nil
}

type testApp struct {
	handler  http.Handler
	client   *stubClient
	sessions *repository.MemoryRepository
	relay    *pubsub.InvalidationRelay
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zerolog.Nop()
	client := &stubClient{}
	sessions := repository.NewMemoryRepository()
	relay := pubsub.NewInvalidationRelay(logger)

	settings := application.NewSettingsService(client, logger)
	registrar := application.NewWebhookRegistrar(client, host, nil, logger)
	oauth := application.NewOAuthService(
		application.OAuthConfig{Scopes: []string{"read_products"}, Host: host, PostAuthRedirect: host + "/"},
		client, sessions, application.NewStateSigner(apiSecret), nil, registrar, logger,
	)
	registry := application.NewHandlerRegistry(
		webhook_handlers.NewShopUpdateHandler(logger, relay, settings),
		webhook_handlers.NewAppUninstalledHandler(logger, sessions, relay, settings),
		webhook_handlers.NewComplianceHandler(logger),
	)

	handler := NewRouter(Dependencies{
		OAuth:          oauth,
		Verifier:       application.NewTokenVerifier(apiKey, apiSecret, sessions, logger),
		Dispatcher:     application.NewWebhookDispatcher(client, registry, nil, sessions, logger),
		Relay:          relay,
		Products:       application.NewProductsService(client, logger),
		Settings:       settings,
		AllowedOrigins: []string{"https://admin.shopify.com"},
	}, logger)

	return &testApp{handler: handler, client: client, sessions: sessions, relay: relay}
}

func (a *testApp) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	return a.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (a *testApp) install(t *testing.T) {
	t.Helper()
	require.NoError(t, a.sessions.StoreSession(context.Background(), domain.NewOfflineSession(shop, "shpat_installed", "read_products", "")))
}

func sessionToken(t *testing.T) string {
	t.Helper()
	now := time.Now()
	claims := application.SessionTokenClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://" + shop + "/admin",
			Audience:  jwt.ClaimStrings{apiKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(apiSecret))
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func webhook(topic, hmacHeader, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(body))
	r.Header.Set(application.HeaderTopic, topic)
	r.Header.Set(application.HeaderHmac, hmacHeader)
	r.Header.Set(application.HeaderShopDomain, shop)
	return r
}

func TestAuthRequiresShop(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/api/auth")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, decode(t, rec)["error"])
}

func TestAuthRedirectsToShopify(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/api/auth?shop=acme&returnTo=/bundles")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, shop, loc.Host)
	assert.Equal(t, "/admin/oauth/authorize", loc.Path)
	assert.Equal(t, host+"/api/auth/callback", loc.Query().Get("redirect_uri"))
	assert.NotEmpty(t, loc.Query().Get("state"))
}

func TestInstallFlow(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/api/auth?shop=" + shop)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	q := url.Values{
		"code":  {"abc"},
		"shop":  {shop},
		"host":  {"YWNtZS5teXNob3BpZnkuY29tL2FkbWlu"},
		"state": {loc.Query().Get("state")},
	}
	rec = app.get("/api/auth/callback?" + q.Encode())
	require.Equal(t, http.StatusFound, rec.Code)

	target, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, shop, target.Query().Get("shop"))
	assert.Equal(t, "YWNtZS5teXNob3BpZnkuY29tL2FkbWlu", target.Query().Get("host"))

	session, err := app.sessions.LoadSession(context.Background(), domain.OfflineSessionID(shop))
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "shpat_abc", session.AccessToken)
}

func TestCallbackErrors(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/api/auth/callback?shop=" + shop)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["error"])

	app.client.exchangeErr = assert.AnError
	rec = app.get("/api/auth/callback?code=abc&shop=" + shop)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Authentication failed", decode(t, rec)["error"])
}

func TestCacheStatusConsumesSignal(t *testing.T) {
	app := newTestApp(t)
	app.relay.Publish(shop, map[string]interface{}{"currencyCode": "EUR"}, domain.InvalidationShopUpdate)

	rec := app.get("/api/cache-status?shop=" + shop)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["invalidated"])
	assert.Equal(t, map[string]interface{}{"currencyCode": "EUR"}, body["changes"])
	assert.Equal(t, "shop_update", body["type"])
	assert.NotEmpty(t, body["invalidatedAt"])

	rec = app.get("/api/cache-status?shop=" + shop)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidated":false}`, rec.Body.String())
}

func TestCacheStatusRequiresShop(t *testing.T) {
	app := newTestApp(t)
	rec := app.get("/api/cache-status")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookToCacheStatus(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(webhook(domain.TopicShopUpdate, validHmac, `{"currency":"EUR","name":"Acme"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = app.get("/api/cache-status?shop=" + shop)
	body := decode(t, rec)
	assert.Equal(t, true, body["invalidated"])
	assert.Equal(t, map[string]interface{}{"currencyCode": "EUR", "shopName": "Acme"}, body["changes"])

	events := app.sessions.WebhookEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.WebhookStatusProcessed, events[0].Status)
}

func TestWebhookStatuses(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(webhook(domain.TopicShopUpdate, "forged", `{"currency":"EUR"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, app.relay.Pending())

	rec = app.do(webhook("", validHmac, `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(webhook("orders/create", validHmac, `{}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Webhook processing failed")

	rec = app.do(webhook(domain.TopicShopUpdate, validHmac, `{broken`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWebhookPartialPayloadIsAcknowledged(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(webhook(domain.TopicShopUpdate, validHmac, `{"currency":978,"primary_locale":"fr"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, app.get("/api/cache-status?shop="+shop))
	assert.Equal(t, map[string]interface{}{"locale": "fr"}, body["changes"])

	rec = app.do(webhook(domain.TopicShopUpdate, validHmac, `[]`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"invalidated":false}`, app.get("/api/cache-status?shop="+shop).Body.String())
}

func TestAppUninstalledWebhook(t *testing.T) {
	app := newTestApp(t)
	app.install(t)

	rec := app.do(webhook(domain.TopicAppUninstalled, validHmac, `{"myshopify_domain":"acme.myshopify.com"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	session, err := app.sessions.LoadSession(context.Background(), domain.OfflineSessionID(shop))
	require.NoError(t, err)
	assert.Nil(t, session)

	rec = app.get("/api/cache-status?shop=" + shop)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["invalidated"])
	assert.Equal(t, "app_uninstalled", body["type"])
	assert.NotEmpty(t, body["invalidatedAt"])
	changes, ok := body["changes"]
	require.True(t, ok, "changes key must be present")
	assert.Equal(t, map[string]interface{}{}, changes)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	assert.Equal(t, http.StatusUnauthorized, app.do(req).Code)
}

func TestProducts(t *testing.T) {
	app := newTestApp(t)
	app.install(t)
	app.client.queryBody = `{"products":{"edges":[{"node":{"id":"gid://shopify/Product/1","title":"Board","handle":"board","status":"ACTIVE","totalInventory":3,"variants":{"edges":[]}}}]}}`

	rec := app.get("/api/products")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Unauthorized"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	rec = app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, "Board", data[0].(map[string]interface{})["title"])

	app.client.queryErr = assert.AnError
	rec = app.get("/api/products?id_token=" + sessionToken(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.NotEmpty(t, body["message"])
}

func TestShopSettings(t *testing.T) {
	app := newTestApp(t)
	app.install(t)
	app.client.queryBody = `{"shop":{"name":"Acme","currencyCode":"EUR","currencyFormats":{"moneyFormat":"€{{amount}}"}},"shopLocales":[{"locale":"fr","primary":true}]}`

	assert.Equal(t, http.StatusUnauthorized, app.get("/api/shop-settings").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/shop-settings", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var settings domain.ShopSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	assert.Equal(t, "EUR", settings.CurrencyCode)
	assert.Equal(t, "fr", settings.Locale)
	assert.True(t, settings.IsInitialized)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = app.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bundle_app_http_requests_total")
}
