// Package auth validates the bearer credentials clients present when opening
// a realtime connection. Tokens are HS256 JWTs issued by the identity layer;
// this package only verifies them and extracts the caller's identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles recognized in token claims.
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
	RoleUser  = "user"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims WatchDesk tokens carry.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID string
	Role   string
}

// Verifier checks bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. The secret must be non-empty.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: empty JWT secret")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = RoleUser
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// FromRequest extracts and verifies the bearer credential on r. It accepts
// an Authorization: Bearer header or, for browser WebSocket clients that
// cannot set headers, a "token" query parameter.
func (v *Verifier) FromRequest(r *http.Request) (Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			return Identity{}, ErrInvalidToken
		}
		return v.Verify(raw)
	}
	if raw := r.URL.Query().Get("token"); raw != "" {
		return v.Verify(raw)
	}
	return Identity{}, ErrInvalidToken
}

// Sign issues a token for the given identity. Used by tests and by the
// external identity layer during development.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
