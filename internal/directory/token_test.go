package directory

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedToken builds an HS256 token with the given claims. The validator never
// verifies signatures, so the signing key is irrelevant.
func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestValidateSessionToken(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	t.Run("valid token passes", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()})
		assert.NoError(t, ValidateSessionToken(token, now))
	})

	t.Run("empty token names the env var", func(t *testing.T) {
		err := ValidateSessionToken("", now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CAMAP_DIRECTORY_TOKEN")
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		assert.Error(t, ValidateSessionToken("not-a-jwt", now))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()})
		err := ValidateSessionToken(token, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token without expiry is rejected", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "someone"})
		err := ValidateSessionToken(token, now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no expiry")
	})
}
