// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package token issues the two kinds of credentials the account lifecycle
// needs: opaque one-time lookup tokens for confirmation and password reset,
// and signed session tokens verifiable without a store lookup.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/vetpraxis/vetpraxis/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// OpaqueTokenLength is the number of random bytes in an opaque token.
const OpaqueTokenLength = 32

// ErrInvalidToken is returned when a session token fails verification,
// whether the signature is wrong or the token has expired.
var ErrInvalidToken = errors.New("invalid token")

// GenerateOpaque returns a cryptographically random identifier used as a
// confirmation or reset token.
func GenerateOpaque() (string, error) {
	bytes := make([]byte, OpaqueTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Claims binds a session token to an account.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"account_id"`
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates a session token issuer from the auth config.
func NewIssuer(cfg *config.AuthConfig) (*Issuer, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &Issuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.SessionHours) * time.Hour,
	}, nil
}

// IssueSession returns a signed, time-bounded bearer token for the account.
func (i *Issuer) IssueSession(accountID string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AccountID: accountID,
	})

	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifySession returns the account id bound to the token, or
// ErrInvalidToken if the signature is invalid or the token expired.
func (i *Issuer) VerifySession(tokenString string) (string, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid || claims.AccountID == "" {
		return "", ErrInvalidToken
	}

	return claims.AccountID, nil
}
