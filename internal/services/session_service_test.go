package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useyours/yours-backend/internal/cryptox"
)

func TestSession_MintAndOpen(t *testing.T) {
	svc := NewSessionService("app-secret", time.Hour)

	token, err := svc.MintSessionToken("google-subject-123")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return []byte("app-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	// The sub claim is sealed, not the raw credential.
	assert.NotEqual(t, "google-subject-123", claims["sub"])

	credential, ok := svc.CredentialFromClaims(claims)
	assert.True(t, ok)
	assert.Equal(t, "google-subject-123", credential)
}

func TestSession_WrongSecretCannotUnseal(t *testing.T) {
	minter := NewSessionService("app-secret", time.Hour)
	opener := NewSessionService("other-secret", time.Hour)

	token, err := minter.MintSessionToken("google-subject-123")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)

	_, ok := opener.CredentialFromClaims(parsed.Claims.(jwt.MapClaims))
	assert.False(t, ok)
}

func TestSession_ExchangeAuthToken(t *testing.T) {
	svc := NewSessionService("app-secret", time.Hour)

	bootstrap, err := cryptox.GenerateAuthToken("google-subject-123", "app-secret")
	require.NoError(t, err)

	credential, ok := svc.ExchangeAuthToken(bootstrap)
	assert.True(t, ok)
	assert.Equal(t, "google-subject-123", credential)

	_, ok = svc.ExchangeAuthToken("junk")
	assert.False(t, ok)
}
