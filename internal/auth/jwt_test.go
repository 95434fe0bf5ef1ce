package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	userID := uuid.New()

	start := time.Now()

	token, err := tm.GenerateToken(userID, "member")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "member", claims.Role)
}

func TestTokenManager_Verify(t *testing.T) {
	ctx := context.Background()
	tm := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	t.Run("valid token yields identity", func(t *testing.T) {
		token, err := tm.GenerateToken(userID, "admin")
		require.NoError(t, err)

		identity, err := tm.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID)
		assert.Equal(t, "admin", identity.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret", time.Hour)
		token, err := other.GenerateToken(userID, "admin")
		require.NoError(t, err)

		_, err = tm.Verify(ctx, token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &Claims{
			UserID: userID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = tm.Verify(ctx, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = tm.Verify(ctx, token)
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := tm.Verify(ctx, "not-a-jwt")
		assert.Error(t, err)
	})
}

func TestTokenManager_NonPositiveTTLFallsBackToOneHour(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)

	start := time.Now()
	token, err := tm.GenerateToken(uuid.New(), "member")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, start.Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}
