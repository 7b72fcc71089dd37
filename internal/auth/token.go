// Package auth signs and verifies the shared-secret tokens that protect
// ingestion.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IngestSubject is the only subject accepted on ingest routes.
const IngestSubject = "monitor"

const issuer = "office-sla-monitor"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	jwt.RegisteredClaims
}

// Signer issues short-lived HS256 tokens and reuses one until it is close
// to expiry.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	token   string
	expires time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Token returns a bearer token valid for at least a quarter of the ttl.
// Signer is not safe for concurrent use.
func (s *Signer) Token() (string, error) {
	now := s.now()
	if s.token != "" && now.Add(s.ttl/4).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   IngestSubject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign ingest token: %w", err)
	}

	s.token = signed
	s.expires = expires
	return signed, nil
}

// Verify checks an "Authorization" header value or a bare token.
func Verify(secret, header string) (*Claims, error) {
	tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(IngestSubject),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return claims, nil
}
