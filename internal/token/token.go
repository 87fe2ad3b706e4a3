// Package token provides the bearer token service for VibeVault.
// Tokens are JWTs signed with a symmetric HS256 secret, carrying the
// username as subject plus issued-at and expiry claims. The service is
// stateless: nothing but the secret and TTL is held after startup.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSecretTooShort indicates the signing key is below 256 bits.
var ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")

// Service mints and validates bearer tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token service. The secret must be at least 32 bytes.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue produces a signed token for the given username, expiring after the
// configured TTL.
func (s *Service) Issue(username string) (string, error) {
	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// SubjectOf returns the username claim of a token without validating its
// expiry. The signature is still verified; a forged or malformed token
// returns an error.
func (s *Service) SubjectOf(tokenString string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &jwt.RegisteredClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, s.keyFunc); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// IsValid reports whether the token's signature verifies, its subject
// matches the expected username, and it has not expired. Every parse
// failure collapses to false; nothing propagates past this boundary.
func (s *Service) IsValid(tokenString, expectedUsername string) bool {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	claims := &jwt.RegisteredClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil || !tok.Valid {
		return false
	}
	return claims.Subject == expectedUsername
}

// keyFunc returns the symmetric secret for signature verification.
func (s *Service) keyFunc(*jwt.Token) (interface{}, error) {
	return s.secret, nil
}
