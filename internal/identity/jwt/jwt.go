// Package jwt signs and parses access tokens. Tokens are JWTs whose jti is
// persisted by the identity repository, so a signature alone is not enough
// to authenticate: logout deletes the record and the token dies with it.
package jwt

import (
	"fmt"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config contains token signing configuration.
type Config struct {
	SecretKey           string
	AccessTokenDuration time.Duration
}

// Authenticator mints and parses signed access tokens.
type Authenticator struct {
	secret   []byte
	duration time.Duration
}

// NewAuthenticator creates a token authenticator.
func NewAuthenticator(cfg Config) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.SecretKey),
		duration: cfg.AccessTokenDuration,
	}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Mint creates a token record for the user and the signed JWT carrying its
// ID. The record is not persisted here; the caller stores it, atomically
// with other writes when needed.
func (a *Authenticator) Mint(user *domain.User) (*domain.AccessToken, string, error) {
	now := time.Now()
	record := &domain.AccessToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(a.duration),
		CreatedAt: now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(user.PrimaryRole()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        record.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return record, signed, nil
}

// Parse verifies the signature and expiry of a signed token and returns
// the embedded identity. It does not consult storage.
func (a *Authenticator) Parse(tokenString string) (userID string, role domain.Role, tokenID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", "", "", fmt.Errorf("parse token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", "", "", fmt.Errorf("invalid token claims")
	}

	return c.Subject, domain.Role(c.Role), c.ID, nil
}
