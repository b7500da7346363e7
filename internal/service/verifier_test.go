package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage/memory"
)

// stubChecker 返回固定结果的检查器
type stubChecker struct {
	ok  bool
	err error
}

func (c stubChecker) Check(ctx context.Context, d *domain.Domain) (bool, error) {
	return c.ok, c.err
}

func TestVerifierService_InstantVerify(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	verifier := NewVerifierService(store, InstantChecker{}, nil, testConfig(), zap.NewNop())

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)

	verified, err := verifier.VerifyDomain(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusVerified, verified.Status)
	assert.True(t, verified.Verified)
	assert.True(t, verified.Active)
	assert.NotNil(t, verified.VerifiedAt)
	assert.Equal(t, 1, verified.CheckAttempts)

	// 已验证的域名重复验证是幂等的
	again, err := verifier.VerifyDomain(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.CheckAttempts)
}

func TestVerifierService_FailAfterMaxAttempts(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	cfg := testConfig()
	cfg.Verify.MaxAttempts = 2
	verifier := NewVerifierService(store, stubChecker{ok: false}, nil, cfg, zap.NewNop())

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)

	// 第一次未通过，仍在 checking
	got, err := verifier.VerifyDomain(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusChecking, got.Status)
	assert.False(t, got.Verified)

	// 达到最大次数后进入 failed
	got, err = verifier.VerifyDomain(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusFailed, got.Status)

	t.Run("失败的域名可以重试", func(t *testing.T) {
		reset, err := verifier.RetryDomain(d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DomainStatusPending, reset.Status)
		assert.Equal(t, 0, reset.CheckAttempts)
	})

	t.Run("非失败状态不能重试", func(t *testing.T) {
		_, err := verifier.RetryDomain(d.ID)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestVerifierService_CheckerError(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	verifier := NewVerifierService(store, stubChecker{err: errors.New("dns timeout")}, nil, testConfig(), zap.NewNop())

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)

	_, err = verifier.VerifyDomain(context.Background(), d.ID)
	assert.True(t, domain.IsExternal(err))

	// 检查器故障不推进到 failed
	got, err := directory.GetDomain(d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DomainStatusChecking, got.Status)
}

func TestVerifierService_RunPendingChecks(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	verifier := NewVerifierService(store, InstantChecker{}, nil, testConfig(), zap.NewNop())

	for _, name := range []string{"one.example.com", "two.example.com"} {
		_, err := directory.CreateDomain(name, "admin-1")
		require.NoError(t, err)
	}

	verified, err := verifier.RunPendingChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, verified)

	domains, err := store.ListVerifiedDomains()
	require.NoError(t, err)
	assert.Len(t, domains, 2)
}

func TestVerifierService_NotFound(t *testing.T) {
	store := memory.NewStore()
	verifier := NewVerifierService(store, InstantChecker{}, nil, testConfig(), zap.NewNop())

	_, err := verifier.VerifyDomain(context.Background(), "missing")
	assert.True(t, domain.IsNotFound(err))
}
