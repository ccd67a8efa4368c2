// Package auth verifies the JWT bearer tokens that gate the API. Tokens
// are minted by an external identity service sharing the HS256 secret;
// this package only validates them and exposes the caller's identity.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the caller's role carried in the "rol" claim.
type Role string

const (
	RoleUser     Role = "user"
	RoleUploader Role = "uploader"
	RoleAdmin    Role = "admin"
)

// CanUpload reports whether the role may submit files.
func (r Role) CanUpload() bool {
	return r == RoleUploader || r == RoleAdmin
}

// IsAdmin reports whether the role sees every user's uploads.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Claims is the verified identity extracted from a token.
type Claims struct {
	UserID   int64  // "id_usuario" claim
	Username string // "sub" claim
	Role     Role   // "rol" claim
}

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, expired, malformed, or missing required claims.
var ErrInvalidToken = errors.New("invalid token")

// Verifier validates HS256-signed JWTs against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. The secret must not be empty.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("JWT secret is required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks the token's signature and expiry and extracts the claims.
// All failures map to ErrInvalidToken so callers cannot leak verification
// detail to clients.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if sub, ok := raw["sub"].(string); ok {
		claims.Username = sub
	}
	// JSON numbers decode as float64.
	if id, ok := raw["id_usuario"].(float64); ok {
		claims.UserID = int64(id)
	}
	if rol, ok := raw["rol"].(string); ok {
		claims.Role = Role(rol)
	}

	if claims.UserID == 0 || claims.Role == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

type claimsKey struct{}

// WithClaims stores verified claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext extracts the verified claims from the context.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}
