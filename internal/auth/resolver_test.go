package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestResolveValidToken(t *testing.T) {
	tok, err := NewToken(testSecret, Identity{UserID: 7, Email: "a@b.c", DisplayName: "alice"}, 5)
	require.NoError(t, err)

	id, err := NewResolver(testSecret).Resolve(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 7, Email: "a@b.c", DisplayName: "alice"}, id)
}

func TestResolveFailures(t *testing.T) {
	good, err := NewToken(testSecret, Identity{UserID: 1}, 5)
	require.NoError(t, err)
	expired, err := NewToken(testSecret, Identity{UserID: 1}, -5)
	require.NoError(t, err)
	noUser, err := NewToken(testSecret, Identity{}, 5)
	require.NoError(t, err)

	tests := []struct {
		name     string
		resolver *Resolver
		token    string
		want     error
	}{
		{"empty", NewResolver(testSecret), "", ErrMissingCredential},
		{"blank", NewResolver(testSecret), "   ", ErrMissingCredential},
		{"garbage", NewResolver(testSecret), "not.a.jwt", ErrInvalidCredential},
		{"wrong secret", NewResolver("other"), good, ErrInvalidCredential},
		{"expired", NewResolver(testSecret), expired, ErrInvalidCredential},
		{"no user id", NewResolver(testSecret), noUser, ErrInvalidCredential},
		{"no secret configured", NewResolver(""), good, ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resolver.Resolve(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", TokenFromRequest(r))
}
