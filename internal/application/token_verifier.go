package application

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bundle-app-shopify-layer/internal/domain"
	"bundle-app-shopify-layer/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const sessionTokenLeeway = 5 * time.Second

// SessionTokenClaims are the claims of the identity token issued by App Bridge
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier resolves App Bridge session tokens to stored offline sessions
type TokenVerifier struct {
	apiKey    string
	apiSecret []byte
	sessions  ports.SessionRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTokenVerifier creates a verifier for tokens signed with the app's API secret
func NewTokenVerifier(apiKey, apiSecret string, sessions ports.SessionRepository, logger zerolog.Logger) *TokenVerifier {
	return &TokenVerifier{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleSessionToken verifies token and returns the session for its shop.
// It never returns a nil session without an error.
func (v *TokenVerifier) HandleSessionToken(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, &domain.InvalidSessionError{Reason: "missing session token"}
	}

	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(v.apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(sessionTokenLeeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		reason := "malformed session token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "session token expired"
		}
		return nil, &domain.InvalidSessionError{Reason: reason, Err: err}
	}

	shop := shopFromDest(claims.Dest)
	if !domain.IsValidShopDomain(shop) {
		return nil, &domain.InvalidSessionError{Reason: "session token has no valid shop"}
	}

	session, err := v.sessions.LoadSession(ctx, domain.OfflineSessionID(shop))
	if err != nil {
		return nil, &domain.InvalidSessionError{Reason: "session lookup failed", Err: err}
	}
	if !session.IsActive() {
		return nil, &domain.InvalidSessionError{
			Reason: "no session for shop",
			Err:    &domain.NotFoundError{Resource: "session", ID: shop},
		}
	}

	return session, nil
}

// VerifyRequest reads the session token from the Authorization header, or the
// id_token query parameter, and returns the session or nil
func (v *TokenVerifier) VerifyRequest(r *http.Request) *domain.Session {
	token := SessionTokenFromRequest(r)
	if token == "" {
		return nil
	}

	session, err := v.HandleSessionToken(r.Context(), token)
	if err != nil {
		v.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Request session verification failed")
		return nil
	}
	return session
}

// SessionTokenFromRequest returns the bearer token, falling back to the
// id_token query parameter App Bridge appends to document requests
func SessionTokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return r.URL.Query().Get("id_token")
}

// shopFromDest extracts the shop domain from the dest claim, which is the
// shop's admin origin (https://<shop>)
func shopFromDest(dest string) string {
	u, err := url.Parse(dest)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}
