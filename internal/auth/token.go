// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the lifetime of an issued token when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// TokenVerifier resolves a bearer token to the account id it was issued for.
type TokenVerifier interface {
	Verify(token string) (ulid.ULID, error)
}

// TokenService issues and verifies HS256-signed JWTs whose subject is an
// account id. Tokens are stateless and cannot be revoked before expiry.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issue and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService signing with secret.
// A non-positive ttl is rejected.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").With("ttl", ttl).Errorf("token ttl must be positive")
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for accountID that expires after the configured TTL.
func (s *TokenService) Issue(accountID ulid.ULID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiryAt(now, s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	return signed, nil
}

// expiryAt returns now+ttl rounded up to a whole second. NumericDate
// truncates, which would otherwise expire a token before its TTL elapses.
func expiryAt(now time.Time, ttl time.Duration) time.Time {
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		return t.Add(time.Second)
	}
	return exp
}

// Verify checks the signature and expiry of token and returns the account
// id in its subject. Every failure wraps ErrInvalidToken.
func (s *TokenService) Verify(token string) (ulid.ULID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").With("reason", err.Error()).Wrap(ErrInvalidToken)
	}

	id, err := ulid.ParseStrict(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").With("reason", "malformed subject").Wrap(ErrInvalidToken)
	}
	return id, nil
}
