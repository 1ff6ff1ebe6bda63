package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", 30*time.Minute, 7*24*time.Hour, "diet")
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Minute, time.Hour, "")
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateAccessToken("user-1", "client")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "client", claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
}

func TestRefreshTokenIsNotAccepted(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestExpiredToken(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := m.GenerateAccessToken("user-1", "client")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestForeignSecretRejected(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager("other-secret", time.Minute, time.Hour, "diet")
	require.NoError(t, err)

	token, err := other.GenerateAccessToken("user-1", "client")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
