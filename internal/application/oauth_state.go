package application

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	stateIssuer = "bundle-app/oauth-state"
	// StateMaxAge bounds how long an authorization round trip may take
	StateMaxAge = 10 * time.Minute
)

// OAuthState is carried through the authorization redirect in the state parameter
type OAuthState struct {
	Shop     string
	ReturnTo string
	Nonce    string
	IssuedAt time.Time
}

type oauthStateClaims struct {
	Shop     string `json:"shop"`
	ReturnTo string `json:"returnTo,omitempty"`
	jwt.RegisteredClaims
}

// StateSigner signs and verifies OAuth state tokens with the app secret
type StateSigner struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewStateSigner creates a signer keyed by the app's API secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{
		secret: []byte(secret),
		maxAge: StateMaxAge,
		now:    time.Now,
	}
}

// Sign issues a state token for shop with a fresh nonce
func (s *StateSigner) Sign(shop, returnTo string) (string, *OAuthState, error) {
	issuedAt := s.now()
	state := &OAuthState{
		Shop:     shop,
		ReturnTo: returnTo,
		Nonce:    uuid.NewString(),
		IssuedAt: issuedAt,
	}

	claims := oauthStateClaims{
		Shop:     shop,
		ReturnTo: returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			ID:        state.Nonce,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.maxAge)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign oauth state: %w", err)
	}
	return token, state, nil
}

// Verify checks the signature and age of a state token
func (s *StateSigner) Verify(token string) (*OAuthState, error) {
	claims := &oauthStateClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.ID == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("invalid oauth state: missing nonce")
	}

	return &OAuthState{
		Shop:     claims.Shop,
		ReturnTo: claims.ReturnTo,
		Nonce:    claims.ID,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
