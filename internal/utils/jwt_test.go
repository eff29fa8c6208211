package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret")

	token, err := svc.GenerateToken(42, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)

	_, err = NewJWTService("other").ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractUserIDWithoutSecret(t *testing.T) {
	token, err := NewJWTService("backend-secret").GenerateToken(7, time.Hour)
	require.NoError(t, err)

	userID, err := NewJWTService("").ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestExtractUserIDOpaqueToken(t *testing.T) {
	svc := NewJWTService("")

	_, err := svc.ExtractUserID("opaque-session-token")
	assert.Error(t, err)

	token, err := NewJWTService("secret").GenerateToken(0, time.Hour)
	require.NoError(t, err)
	_, err = svc.ExtractUserID(token)
	assert.ErrorIs(t, err, ErrNoUserID)
}

func TestExpired(t *testing.T) {
	svc := NewJWTService("secret")
	token, err := svc.GenerateToken(1, time.Minute)
	require.NoError(t, err)

	assert.False(t, svc.Expired(token, time.Now()))
	assert.True(t, svc.Expired(token, time.Now().Add(2*time.Minute)))
	assert.False(t, svc.Expired("opaque", time.Now()))
}
