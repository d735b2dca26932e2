package repository

import (
	"context"
	"fmt"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"
)

// EncryptedSessionRepository encrypts access tokens before they reach the
// underlying store and decrypts them on the way out
type EncryptedSessionRepository struct {
	inner         ports.SessionRepository
	encryptionSvc ports.EncryptionService
}

var _ ports.SessionRepository = (*EncryptedSessionRepository)(nil)

// NewEncryptedSessionRepository wraps inner with token encryption
func NewEncryptedSessionRepository(inner ports.SessionRepository, encryptionSvc ports.EncryptionService) *EncryptedSessionRepository {
	return &EncryptedSessionRepository{
		inner:         inner,
		encryptionSvc: encryptionSvc,
	}
}

// StoreSession encrypts the access token and stores the session
func (r *EncryptedSessionRepository) StoreSession(ctx context.Context, session *domain.Session) error {
	stored := *session
	if stored.AccessToken != "" {
		encrypted, err := r.encryptionSvc.Encrypt(stored.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		stored.AccessToken = encrypted
	}
	return r.inner.StoreSession(ctx, &stored)
}

// LoadSession loads a session and decrypts its access token
func (r *EncryptedSessionRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := r.inner.LoadSession(ctx, id)
	if err != nil || session == nil {
		return session, err
	}
	if err := r.decrypt(session); err != nil {
		return nil, err
	}
	return session, nil
}

// FindSessionsByShop loads all sessions for a shop and decrypts their tokens
func (r *EncryptedSessionRepository) FindSessionsByShop(ctx context.Context, shop string) ([]*domain.Session, error) {
	sessions, err := r.inner.FindSessionsByShop(ctx, shop)
	if err != nil {
		return nil, err
	}
	for _, session := range sessions {
		if err := r.decrypt(session); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// DeleteSessionsByShop removes all sessions for a shop
func (r *EncryptedSessionRepository) DeleteSessionsByShop(ctx context.Context, shop string) (int64, error) {
	return r.inner.DeleteSessionsByShop(ctx, shop)
}

func (r *EncryptedSessionRepository) decrypt(session *domain.Session) error {
	if session.AccessToken == "" {
		return nil
	}
	decrypted, err := r.encryptionSvc.Decrypt(session.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to decrypt access token for session %s: %w", session.ID, err)
	}
	session.AccessToken = decrypted
	return nil
}
