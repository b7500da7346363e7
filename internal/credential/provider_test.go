package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webmail/backend/internal/storage/memory"
)

func TestLocalProvider(t *testing.T) {
	store := memory.NewStore()
	provider := NewLocalProvider(store)

	t.Run("创建凭证成功", func(t *testing.T) {
		uid, err := provider.Create("alice@example.com", "Passw0rd")
		require.NoError(t, err)
		assert.NotEmpty(t, uid)

		// 密码以 bcrypt 哈希存储
		cred, err := store.GetCredentialByEmail("alice@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, "Passw0rd", cred.PasswordHash)
	})

	t.Run("地址已占用失败", func(t *testing.T) {
		_, err := provider.Create("alice@example.com", "Other0ne")
		assert.ErrorIs(t, err, ErrEmailInUse)
	})

	t.Run("校验正确密码成功", func(t *testing.T) {
		uid, err := provider.Verify("alice@example.com", "Passw0rd")
		require.NoError(t, err)
		assert.NotEmpty(t, uid)
	})

	t.Run("错误密码与未知地址返回同一错误", func(t *testing.T) {
		_, wrongPass := provider.Verify("alice@example.com", "Wrong0ne")
		_, unknown := provider.Verify("nobody@example.com", "Passw0rd")
		assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	})

	t.Run("删除凭证释放地址", func(t *testing.T) {
		uid, err := provider.Verify("alice@example.com", "Passw0rd")
		require.NoError(t, err)

		require.NoError(t, provider.Delete(uid))

		_, err = provider.Create("alice@example.com", "Fresh0ne")
		assert.NoError(t, err)
	})

	t.Run("删除不存在的凭证", func(t *testing.T) {
		err := provider.Delete("missing-uid")
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}
