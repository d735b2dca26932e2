package application

import (
	"context"
	"sort"
	"sync"

	"bundle-app-shopify-layer/internal/domain"
)

// WebhookHandler processes deliveries for one or more topics
type WebhookHandler interface {
	Topics() []string
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// HandlerRegistry maps webhook topics to handlers. The default set can be
// installed again at any time, e.g. after a cold start left the registry empty.
type HandlerRegistry struct {
	mu         sync.RWMutex
	defaults   []WebhookHandler
	handlers   map[string]WebhookHandler
	registered bool
}

// NewHandlerRegistry creates a registry whose default set is handlers. Nothing
// is registered until EnsureRegistered or RegisterDefaults runs.
func NewHandlerRegistry(handlers ...WebhookHandler) *HandlerRegistry {
	return &HandlerRegistry{
		defaults: handlers,
		handlers: make(map[string]WebhookHandler),
	}
}

// EnsureRegistered installs the default set once; later calls are no-ops
func (r *HandlerRegistry) EnsureRegistered() {
	r.mu.RLock()
	registered := r.registered
	r.mu.RUnlock()
	if registered {
		return
	}
	r.RegisterDefaults()
}

// RegisterDefaults installs every default handler, keeping handlers registered
// under other topics
func (r *HandlerRegistry) RegisterDefaults() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.defaults {
		for _, topic := range h.Topics() {
			r.handlers[topic] = h
		}
	}
	r.registered = true
}

// Register adds or replaces the handler for a topic
func (r *HandlerRegistry) Register(topic string, h WebhookHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = h
}

// Lookup returns the handler for topic
func (r *HandlerRegistry) Lookup(topic string) (WebhookHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[topic]
	if !ok || !h.CanHandle(topic) {
		return nil, false
	}
	return h, true
}

// Reset empties the registry, as a fresh process would start
func (r *HandlerRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]WebhookHandler)
	r.registered = false
}

// Topics lists the topics of the default set, sorted
func (r *HandlerRegistry) Topics() []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, h := range r.defaults {
		for _, topic := range h.Topics() {
			if _, ok := seen[topic]; !ok {
				seen[topic] = struct{}{}
				topics = append(topics, topic)
			}
		}
	}
	sort.Strings(topics)
	return topics
}
