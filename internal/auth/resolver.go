package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Identity is the application user behind a connection.
type Identity struct {
	UserID      int64
	Email       string
	DisplayName string
}

type Resolver struct {
	secret string
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: secret}
}

// Resolve verifies the bearer token and extracts the identity. Any failure is
// either ErrMissingCredential or wraps ErrInvalidCredential.
func (r *Resolver) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrMissingCredential
	}
	if r.secret == "" {
		return Identity{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidCredential)
	}
	claims, err := ParseToken(r.secret, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if claims.UserId <= 0 {
		return Identity{}, fmt.Errorf("%w: token carries no user id", ErrInvalidCredential)
	}
	return Identity{
		UserID:      claims.UserId,
		Email:       claims.Email,
		DisplayName: claims.Username,
	}, nil
}

// TokenFromRequest reads the handshake credential:
// 1) Query:  ?token=<JWT>
// 2) Header: Authorization: Bearer <JWT>
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
