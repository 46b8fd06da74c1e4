package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() JWTService {
	return NewJWTService(Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testService()
	userID := uuid.New()
	orgID := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(userID, orgID, "owner@example.com", "owner")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, orgID, claims.OrganizationID)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, "owner", claims.Role)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc := testService()

	refresh, err := svc.GenerateRefreshToken(uuid.New(), uuid.New(), "a@b.c", "staff")
	require.NoError(t, err)

	// Different secret, so validation fails before the type check even runs.
	_, err = svc.ValidateToken(refresh, TokenTypeAccess)
	assert.Error(t, err)

	claims, err := svc.ValidateToken(refresh, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := testService()

	_, err := svc.ValidateToken("not-a-token", TokenTypeAccess)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	other := NewJWTService(Config{
		Secret:        "someone-elses-secret",
		RefreshSecret: "x",
		Expiry:        time.Hour,
		RefreshExpiry: time.Hour,
	})
	token, _, err := other.GenerateAccessToken(uuid.New(), uuid.New(), "a@b.c", "staff")
	require.NoError(t, err)

	_, err = testService().ValidateToken(token, TokenTypeAccess)
	assert.Error(t, err)
}
