package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", &ValidationError{Field: "shop"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("initiate: %w", &ValidationError{Field: "shop"}), http.StatusBadRequest},
		{"invalid session", &InvalidSessionError{Reason: "expired"}, http.StatusUnauthorized},
		{"auth default", &AuthError{Message: "bad token"}, http.StatusUnauthorized},
		{"auth with status", &AuthError{Message: "exchange failed", Status: http.StatusInternalServerError}, http.StatusInternalServerError},
		{"not found", &NotFoundError{Resource: "session", ID: "acme.myshopify.com"}, http.StatusNotFound},
		{"upstream", &UpstreamError{Op: "products query"}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "shop is required", (&ValidationError{Field: "shop"}).Error())
	assert.Equal(t, "invalid shop domain", (&ValidationError{Field: "shop", Message: "invalid shop domain"}).Error())
}

func TestInvalidSessionErrorUnwrap(t *testing.T) {
	cause := errors.New("token is expired")
	err := &InvalidSessionError{Reason: "token rejected", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "token rejected")
}

func TestNormalizeShop(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme.myshopify.com", "acme.myshopify.com"},
		{"  ACME.myshopify.com ", "acme.myshopify.com"},
		{"https://acme.myshopify.com/", "acme.myshopify.com"},
		{"https://acme.myshopify.com/admin", "acme.myshopify.com"},
		{"acme", "acme.myshopify.com"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeShop(tt.in), tt.in)
	}
}

func TestIsValidShopDomain(t *testing.T) {
	assert.True(t, IsValidShopDomain("acme.myshopify.com"))
	assert.True(t, IsValidShopDomain("acme-store-2.myshopify.com"))
	assert.False(t, IsValidShopDomain("acme.example.com"))
	assert.False(t, IsValidShopDomain("-acme.myshopify.com"))
	assert.False(t, IsValidShopDomain("evil.com/acme.myshopify.com"))
	assert.False(t, IsValidShopDomain(""))
}

func TestSessionScopes(t *testing.T) {
	s := NewOfflineSession("acme.myshopify.com", "shpat_123", "read_products, write_products,", "nonce")
	assert.Equal(t, "offline_acme.myshopify.com", s.ID)
	assert.False(t, s.IsOnline)
	assert.Equal(t, []string{"read_products", "write_products"}, s.Scopes())
	assert.True(t, s.IsActive())

	var nilSession *Session
	assert.False(t, nilSession.IsActive())
}
