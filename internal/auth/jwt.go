// Package auth identifies anonymous viewers so their page preferences can be
// stored server-side.
//
// VIEWER FLOW OVERVIEW:
// 1. A browser requests any page without a "viewer" cookie
// 2. The Viewer middleware mints a new viewer ID and signs it into a JWT
// 3. The JWT is stored in an HttpOnly cookie with a long lifetime
// 4. On later requests (page loads, the session socket, preference calls),
//    the middleware validates the cookie and puts the viewer ID in the context
//
// There are no accounts: a viewer is a browser. Losing the cookie simply
// starts a fresh viewer with default preferences.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"<viewer id>","iss":"docrunner","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every viewer token and required on validation.
const Issuer = "docrunner"

// DefaultTTL is how long a viewer token stays valid when none is configured.
const DefaultTTL = 365 * 24 * time.Hour

// TokenService signs and verifies viewer tokens.
//
// The same secret must be used for both operations. A server started with a
// random secret invalidates every existing cookie on restart.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret and token
// lifetime. A non-positive ttl means DefaultTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. The viewer ID travels in "sub".
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a token for viewerID with the service's lifetime.
func (s *TokenService) Generate(viewerID string) (string, error) {
	return s.GenerateWithDuration(viewerID, s.ttl)
}

// GenerateWithDuration signs a token with a custom expiry.
// Used in tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(viewerID string, d time.Duration) (string, error) {
	if viewerID == "" {
		return "", errors.New("auth: empty viewer id")
	}
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns the viewer ID.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired
//   - Issuer matches "docrunner"
//   - Algorithm is HS256, which rules out "none"-signed tokens
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
