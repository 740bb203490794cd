package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskly/taskly-be/internal/apperror"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, err := m.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestTokenVerifyFailures(t *testing.T) {
	m := NewTokenManager("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"malformed", "not-a-token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			require.Error(t, err)
			assert.True(t, apperror.IsKind(err, apperror.Auth))
		})
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a")
	verifier := NewTokenManager("secret-b")

	token, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.Auth))
}

func TestTokenExpired(t *testing.T) {
	m := &TokenManager{secret: []byte("test-secret"), ttl: -time.Minute}

	token, err := m.Issue("user-123")
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.Auth))
}
