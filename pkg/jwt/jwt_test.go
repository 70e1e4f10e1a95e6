package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc, err := NewService("test-secret", time.Hour, "emotion-character")
	require.NoError(t, err)

	token, err := svc.GenerateToken(42, "user@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateRejects(t *testing.T) {
	svc, err := NewService("test-secret", time.Hour, "emotion-character")
	require.NoError(t, err)
	token, err := svc.GenerateToken(42, "")
	require.NoError(t, err)

	other, err := NewService("other-secret", time.Hour, "emotion-character")
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewService("test-secret", time.Hour, "someone-else")
	require.NoError(t, err)
	_, err = foreign.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpired(t *testing.T) {
	svc, err := NewService("test-secret", time.Minute, "")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := svc.GenerateToken(1, "")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService("", time.Hour, "")
	assert.ErrorIs(t, err, ErrNoSecret)
}
