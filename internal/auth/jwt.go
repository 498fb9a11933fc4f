// Package auth issues and checks session tokens, hashes passwords and runs
// the Google OAuth flows.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "videohub"

// DefaultSessionTTL is how long a session token stays valid.
const DefaultSessionTTL = 24 * time.Hour

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// TokenService signs and validates HS256 session tokens. The subject is
// the canonical user id ("google:<sub>" or "local:<xid>").
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultSessionTTL}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a session token for userID with the default lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token that expires after d. A negative d
// yields an already-expired token, which tests use.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// TTL returns the lifetime of tokens from Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Validate checks signature, issuer and expiry and returns the subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
