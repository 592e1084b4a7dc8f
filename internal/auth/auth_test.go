package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargo-connect-api-server/internal/auth"
)

func newTestManager() *auth.Manager {
	return auth.NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestIssueAndParseTokens(t *testing.T) {
	m := newTestManager()

	pair, err := m.IssueTokens("USR-ABCD1234", "driver@example.com", "provider")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := m.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "USR-ABCD1234", claims.UserID)
	assert.Equal(t, "driver@example.com", claims.Email)
	assert.Equal(t, "provider", claims.Role)

	claims, err = m.ParseRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "USR-ABCD1234", claims.UserID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := newTestManager()
	pair, err := m.IssueTokens("USR-ABCD1234", "driver@example.com", "provider")
	require.NoError(t, err)

	_, err = m.ParseAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
	_, err = m.ParseRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	m := newTestManager()
	other := auth.NewManager("other-secret", "other-refresh", 15*time.Minute, time.Hour)

	pair, err := other.IssueTokens("USR-ABCD1234", "driver@example.com", "provider")
	require.NoError(t, err)
	_, err = m.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = m.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	expired := auth.NewManager("access-secret", "refresh-secret", -time.Minute, -time.Minute)
	pair, err = expired.IssueTokens("USR-ABCD1234", "driver@example.com", "provider")
	require.NoError(t, err)
	_, err = m.ParseAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, auth.CheckPasswordHash("s3cret-password", hash))
	assert.False(t, auth.CheckPasswordHash("wrong-password", hash))
	assert.False(t, auth.CheckPasswordHash("s3cret-password", "not-a-hash"))
}
