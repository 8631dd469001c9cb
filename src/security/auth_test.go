package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradelog/backend/src/config"
)

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	prev := config.Cfg
	config.Cfg = &config.AppConfig{AccessTokenExpiry: time.Hour}
	t.Cleanup(func() { config.Cfg = prev })
	return NewAuthService("test-secret-key-that-is-long-enough-123")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	auth := newTestAuthService(t)

	token, err := auth.GenerateToken("42")
	require.NoError(t, err)

	subject, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	auth := newTestAuthService(t)
	other := NewAuthService("a-completely-different-secret-key-456")

	token, err := auth.GenerateToken("42")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	auth := newTestAuthService(t)

	_, err := auth.ValidateToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	auth := newTestAuthService(t)

	hash, err := auth.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)
}

func TestGenerateRandomTokenIsUnique(t *testing.T) {
	auth := newTestAuthService(t)

	a, err := auth.GenerateRandomToken()
	require.NoError(t, err)
	b, err := auth.GenerateRandomToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
}
