package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	tok, err := m.GenerateToken(42, "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user@example.com", claims.Subject)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	m1 := NewJWTManager("secret-one", 1, 7)
	m2 := NewJWTManager("secret-two", 1, 7)

	tok, err := m1.GenerateToken(1, "a@x.com")
	require.NoError(t, err)

	_, err = m2.VerifyToken(tok)
	assert.Error(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	_, err := m.VerifyToken("not.a.token")
	assert.Error(t, err)

	_, err = m.VerifyToken("")
	assert.Error(t, err)
}

func TestRefreshTokenHasLongerExpiry(t *testing.T) {
	m := NewJWTManager("test-secret", 1, 7)

	access, err := m.GenerateToken(1, "a@x.com")
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken(1, "a@x.com")
	require.NoError(t, err)

	ac, err := m.VerifyToken(access)
	require.NoError(t, err)
	rc, err := m.VerifyToken(refresh)
	require.NoError(t, err)
	assert.True(t, rc.ExpiresAt.After(ac.ExpiresAt.Time))
}

func TestGenerateRandomString(t *testing.T) {
	s1 := GenerateRandomString(16)
	s2 := GenerateRandomString(16)
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}
