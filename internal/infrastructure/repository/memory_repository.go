package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"
)

// MemoryRepository keeps sessions and webhook events in process memory.
// It backs SESSION_STORAGE=memory for local development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	events   []domain.WebhookEvent
}

var (
	_ ports.SessionRepository      = (*MemoryRepository)(nil)
	_ ports.WebhookEventRepository = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]domain.Session),
	}
}

// StoreSession saves or overwrites a session
func (r *MemoryRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *session
	stored.UpdatedAt = time.Now()
	if existing, ok := r.sessions[session.ID]; ok && !existing.CreatedAt.IsZero() {
		stored.CreatedAt = existing.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}
	r.sessions[session.ID] = stored
	return nil
}

// LoadSession retrieves a session by ID
func (r *MemoryRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// FindSessionsByShop retrieves all sessions for a shop ordered by ID
func (r *MemoryRepository) FindSessionsByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*domain.Session
	for _, s := range r.sessions {
		if s.Shop == shop {
			session := s
			sessions = append(sessions, &session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

// DeleteSessionsByShop removes all sessions for a shop
func (r *MemoryRepository) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, s := range r.sessions {
		if s.Shop == shop {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// LogWebhook appends a webhook event
func (r *MemoryRepository) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.events = append(r.events, stored)
	return nil
}

// WebhookEvents returns a copy of the logged webhook events
func (r *MemoryRepository) WebhookEvents() []domain.WebhookEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]domain.WebhookEvent, len(r.events))
	copy(events, r.events)
	return events
}
