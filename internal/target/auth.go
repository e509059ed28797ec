package target

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenProvider supplies bearer tokens for authenticated targets.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken always returns the same pre-issued token.
type StaticToken string

func (s StaticToken) Token() (string, error) {
	return string(s), nil
}

// TestClaims is the claim set minted for load runs against environments that
// accept locally signed tokens.
type TestClaims struct {
	Agent     string `json:"agent"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTSigner mints short-lived HS256 tokens so authenticated endpoints can be
// exercised without a round trip to the identity provider.
type JWTSigner struct {
	secret  []byte
	subject string
	ttl     time.Duration
}

func NewJWTSigner(secret, subject string, ttl time.Duration) *JWTSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTSigner{
		secret:  []byte(secret),
		subject: subject,
		ttl:     ttl,
	}
}

func (s *JWTSigner) Token() (string, error) {
	now := time.Now()
	claims := TestClaims{
		Agent:     "perfrunner",
		SessionID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
