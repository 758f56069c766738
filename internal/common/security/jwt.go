package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimSessionID = "id"
	ClaimExpires   = "expires"
)

var ErrInvalidClaims = errors.New("token claims are missing or malformed")

// TokenIssuer signs session tokens and exposes the verifier used by the router.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (t *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return t.auth
}

// Issue signs a token embedding the session id and the session expiry.
func (t *TokenIssuer) Issue(sessionID string, expires time.Time) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		ClaimSessionID: sessionID,
		ClaimExpires:   expires.UTC().Format(time.RFC3339),
		"exp":          now.Add(t.ttl).Unix(),
		"iat":          now.Unix(),
	}
	_, tokenString, err := t.auth.Encode(claims)
	return tokenString, err
}

// SessionFromClaims extracts the session id and embedded expiry from verified claims.
func SessionFromClaims(claims map[string]interface{}) (string, time.Time, error) {
	id, ok := claims[ClaimSessionID].(string)
	if !ok || id == "" {
		return "", time.Time{}, ErrInvalidClaims
	}
	raw, ok := claims[ClaimExpires].(string)
	if !ok {
		return "", time.Time{}, ErrInvalidClaims
	}
	expires, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "", time.Time{}, ErrInvalidClaims
	}
	return id, expires, nil
}
