package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// fakeShopifyClient is a scripted ports.ShopifyClient
type fakeShopifyClient struct {
	mu sync.Mutex

	hmacValid     bool
	callbackValid bool
	exchangeErr   error
	token         *ports.AccessTokenResponse
	exchanges     int

	queryBody string
	queryErr  error
	queries   []string

	existing  []shopify.Webhook
	created   []string
	createErr error
}

func newFakeShopifyClient() *fakeShopifyClient {
	return &fakeShopifyClient{
		hmacValid:     true,
		callbackValid: true,
		token:         &ports.AccessTokenResponse{AccessToken: "shpat_test", Scope: "read_products,write_products"},
	}
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state + "&redirect_uri=" + redirectURI, nil
}

func (f *fakeShopifyClient) ExchangeToken(ctx context.Context, shop, code, redirectURI string) (*ports.AccessTokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeShopifyClient) VerifyCallbackHMAC(query string) (bool, error) {
	return f.callbackValid, nil
}

func (f *fakeShopifyClient) VerifyWebhookHMAC(payload []byte, header string) bool {
	return f.hmacValid && header != ""
}

func (f *fakeShopifyClient) Query(ctx context.Context, shop, token, query string, vars map[string]interface{}, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.queryErr != nil {
		return f.queryErr
	}
	return json.Unmarshal([]byte(f.queryBody), out)
}

func (f *fakeShopifyClient) CreateWebhook(ctx context.Context, shop, token, topic, address string) (*shopify.Webhook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, topic)
	return &shopify.Webhook{Topic: topic, Address: address}, nil
}

func (f *fakeShopifyClient) ListWebhooks(ctx context.Context, shop, token string) ([]shopify.Webhook, error) {
	return f.existing, nil
}

// memorySessions is a minimal ports.SessionRepository
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	err      error
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]*domain.Session)}
}

func (m *memorySessions) StoreSession(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *memorySessions) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *memorySessions) FindSessionsByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Session
	for _, s := range m.sessions {
		if s.Shop == shop {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memorySessions) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Shop == shop {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// memoryNonces is a minimal ports.NonceStore
type memoryNonces struct {
	mu     sync.Mutex
	nonces map[string]string
}

func newMemoryNonces() *memoryNonces {
	return &memoryNonces{nonces: make(map[string]string)}
}

func (m *memoryNonces) SaveNonce(ctx context.Context, nonce, shop string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[nonce] = shop
	return nil
}

func (m *memoryNonces) ConsumeNonce(ctx context.Context, nonce string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shop, ok := m.nonces[nonce]
	delete(m.nonces, nonce)
	return shop, ok, nil
}

// memoryLedger is a minimal ports.DeliveryLedger
type memoryLedger struct {
	mu     sync.Mutex
	states map[string]ports.DeliveryState
	err    error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{states: make(map[string]ports.DeliveryState)}
}

func (l *memoryLedger) ClaimDelivery(ctx context.Context, id string) (ports.DeliveryState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return ports.DeliveryNew, l.err
	}
	if state, ok := l.states[id]; ok {
		return state, nil
	}
	l.states[id] = ports.DeliveryInProgress
	return ports.DeliveryNew, nil
}

func (l *memoryLedger) CompleteDelivery(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.states[id] = ports.DeliveryDone
	return nil
}

func (l *memoryLedger) ForgetDelivery(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, id)
	return nil
}

// expire drops a claim as its TTL would
func (l *memoryLedger) expire(id string) {
	l.ForgetDelivery(context.Background(), id)
}

// recordingAudit captures audit rows
type recordingAudit struct {
	mu     sync.Mutex
	events []domain.WebhookEvent
	err    error
}

func (a *recordingAudit) LogWebhook(ctx context.Context, e *domain.WebhookEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, *e)
	return a.err
}

func (a *recordingAudit) statuses() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.events {
		out = append(out, e.Status)
	}
	return out
}

// stubHandler is a scripted WebhookHandler
type stubHandler struct {
	topics []string
	err    error
	panics bool

	// started receives each call; block holds Handle until it is closed
	started chan struct{}
	block   chan struct{}

	mu    sync.Mutex
	calls []*domain.WebhookEvent
}

func (h *stubHandler) Topics() []string { return h.topics }

func (h *stubHandler) CanHandle(topic string) bool {
	for _, t := range h.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (h *stubHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.mu.Lock()
	h.calls = append(h.calls, event)
	h.mu.Unlock()
	if h.started != nil {
		h.started <- struct{}{}
	}
	if h.block != nil {
		<-h.block
	}
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *stubHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

var errBoom = errors.New("boom")
