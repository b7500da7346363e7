package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-chars-long-minimum!"

func TestManager_GenerateAndValidate(t *testing.T) {
	manager := NewManager(testSecret, "webmail", 15*time.Minute, 7*24*time.Hour)

	t.Run("生成并验证令牌对", func(t *testing.T) {
		pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "admin")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		claims, err := manager.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "webmail", claims.Issuer)
	})

	t.Run("篡改令牌验证失败", func(t *testing.T) {
		pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "user")
		require.NoError(t, err)

		_, err = manager.ValidateToken(pair.AccessToken + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("其他密钥签发的令牌验证失败", func(t *testing.T) {
		other := NewManager("another-secret-key-32-chars-long-min!", "webmail", time.Minute, time.Hour)
		pair, err := other.GenerateTokenPair("user-1", "alice@example.com", "user")
		require.NoError(t, err)

		_, err = manager.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("过期令牌验证失败", func(t *testing.T) {
		expired := NewManager(testSecret, "webmail", -time.Minute, time.Hour)
		pair, err := expired.GenerateTokenPair("user-1", "alice@example.com", "user")
		require.NoError(t, err)

		_, err = manager.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("刷新令牌换取新访问令牌", func(t *testing.T) {
		pair, err := manager.GenerateTokenPair("user-1", "alice@example.com", "user")
		require.NoError(t, err)

		access, err := manager.RefreshAccessToken(pair.RefreshToken)
		require.NoError(t, err)

		claims, err := manager.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})
}
