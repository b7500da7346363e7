package auth

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmail/backend/internal/auth/jwt"
	"webmail/backend/internal/credential"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, credential.Provider) {
	t.Helper()
	store := memory.NewStore()
	provider := credential.NewLocalProvider(store)
	manager := jwt.NewManager("test-secret-key-32-chars-long-minimum!", "webmail", 15*time.Minute, 7*24*time.Hour)
	return NewService(store, provider, manager, zap.NewNop()), store, provider
}

func seedUser(t *testing.T, store *memory.Store, provider credential.Provider, email, password string, active bool) *domain.MailboxUser {
	t.Helper()
	uid, err := provider.Create(email, password)
	require.NoError(t, err)

	user := &domain.MailboxUser{
		ID:            "user-" + email,
		Username:      "alice",
		DomainID:      "domain-1",
		Email:         email,
		Role:          domain.RoleUser,
		Active:        active,
		CredentialUID: uid,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.CreateMailboxUser(user))
	return user
}

func TestAuthService_Login(t *testing.T) {
	service, store, provider := newTestService(t)
	seedUser(t, store, provider, "alice@example.com", "Passw0rd", true)

	t.Run("登录成功", func(t *testing.T) {
		result, err := service.Login("alice@example.com", "Passw0rd")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", result.User.Email)
		assert.NotEmpty(t, result.Tokens.AccessToken)

		// 登录成功后更新最后登录时间
		updated, err := store.GetMailboxUser(result.User.ID)
		require.NoError(t, err)
		assert.NotNil(t, updated.LastLoginAt)
	})

	t.Run("密码错误失败", func(t *testing.T) {
		_, err := service.Login("alice@example.com", "Wrong0ne")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("未知地址失败", func(t *testing.T) {
		_, err := service.Login("nobody@example.com", "Passw0rd")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("停用用户登录失败", func(t *testing.T) {
		seedUser(t, store, provider, "bob@example.com", "Passw0rd", false)

		_, err := service.Login("bob@example.com", "Passw0rd")
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	service, store, provider := newTestService(t)
	seedUser(t, store, provider, "alice@example.com", "Passw0rd", true)

	result, err := service.Login("alice@example.com", "Passw0rd")
	require.NoError(t, err)

	access, err := service.Refresh(result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	_, err = service.Refresh("not-a-token")
	assert.Error(t, err)
}

func TestAuthService_GetUserByID(t *testing.T) {
	service, store, provider := newTestService(t)
	user := seedUser(t, store, provider, "alice@example.com", "Passw0rd", true)

	got, err := service.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = service.GetUserByID("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// 指标注册在默认 registry，整个测试二进制只创建一次
var authMetrics = monitoring.NewMetrics()

func TestAuthService_LoginMetrics(t *testing.T) {
	service, store, provider := newTestService(t)
	service.SetMetrics(authMetrics)
	seedUser(t, store, provider, "alice@example.com", "Passw0rd", true)

	success := testutil.ToFloat64(authMetrics.LoginsTotal.WithLabelValues("success"))
	failure := testutil.ToFloat64(authMetrics.LoginsTotal.WithLabelValues("failure"))

	_, err := service.Login("alice@example.com", "Passw0rd")
	require.NoError(t, err)

	_, err = service.Login("alice@example.com", "Wrong0ne")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, success+1, testutil.ToFloat64(authMetrics.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(authMetrics.LoginsTotal.WithLabelValues("failure")))
}
