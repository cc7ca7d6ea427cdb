package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/tripdesk/application/port/outbound"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func TestJWTService(t *testing.T) {
	service, err := NewJWTService(testSecret, "tripdesk", time.Hour)
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := service.GenerateAccessToken(outbound.TokenClaims{
			Email: "carol@example.com",
			Name:  "Carol",
			Role:  "poc",
		})
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := service.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "carol@example.com", claims.Email)
		assert.Equal(t, "Carol", claims.Name)
		assert.Equal(t, "poc", claims.Role)
	})

	t.Run("EmptyEmail", func(t *testing.T) {
		_, err := service.GenerateAccessToken(outbound.TokenClaims{})
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := service.ValidateAccessToken("invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewJWTService("another-secret-that-is-32-chars-long", "tripdesk", time.Hour)
		require.NoError(t, err)
		token, err := other.GenerateAccessToken(outbound.TokenClaims{Email: "bob@example.com"})
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		short, err := NewJWTService(testSecret, "tripdesk", time.Minute)
		require.NoError(t, err)
		issuedAt := time.Now().Add(-time.Hour)
		short.now = func() time.Time { return issuedAt }

		token, err := short.GenerateAccessToken(outbound.TokenClaims{Email: "bob@example.com"})
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService("short", "tripdesk", time.Hour)
	assert.Error(t, err)
}
