// Package authz verifies the identity tokens presented on websocket connects.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned when a token cannot be verified.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the verified connection context handed back on connect.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	TokenExp int64  `json:"tokenExp"`
}

// Verifier turns a raw token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWTVerifier validates HMAC-signed tokens with a shared secret.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier builds a verifier around the given signing secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify parses and validates the token, returning the identity claims.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	sub := stringClaim(claims, "sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrUnauthorized)
	}

	id := &Identity{
		UserID:   sub,
		Username: firstClaim(claims, "username", "cognito:username"),
		Email:    stringClaim(claims, "email"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.TokenExp = exp.Unix()
	} else {
		id.TokenExp = time.Now().Add(time.Hour).Unix()
	}
	return id, nil
}

// stringClaim returns the string value of claim k, or "".
func stringClaim(claims jwt.MapClaims, k string) string {
	if s, ok := claims[k].(string); ok {
		return s
	}
	return ""
}

// firstClaim returns the first non-empty string among the named claims.
func firstClaim(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s := stringClaim(claims, k); s != "" {
			return s
		}
	}
	return ""
}
