package memory

import (
	"sync"
	"testing"
	"time"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DomainOperations(t *testing.T) {
	store := NewStore()

	d := &domain.Domain{
		ID:         "domain-1",
		Name:       "example.com",
		Status:     domain.DomainStatusPending,
		ServerIP:   "1.2.3.4",
		DNSRecords: domain.DeriveDNSRecords("example.com", "1.2.3.4"),
		CreatedAt:  time.Now(),
	}

	err := store.SaveDomain(d)
	require.NoError(t, err)

	// 名称唯一约束
	dup := &domain.Domain{ID: "domain-2", Name: "example.com"}
	err = store.SaveDomain(dup)
	assert.ErrorIs(t, err, storage.ErrDomainExists)

	retrieved, err := store.GetDomain("domain-1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", retrieved.Name)
	assert.Equal(t, d.DNSRecords, retrieved.DNSRecords)

	retrieved, err = store.GetDomainByName("example.com")
	require.NoError(t, err)
	assert.Equal(t, "domain-1", retrieved.ID)

	// 更新验证状态
	now := time.Now()
	retrieved.Status = domain.DomainStatusVerified
	retrieved.Verified = true
	retrieved.Active = true
	retrieved.VerifiedAt = &now
	require.NoError(t, store.UpdateDomain(retrieved))

	verified, err := store.ListVerifiedDomains()
	require.NoError(t, err)
	assert.Len(t, verified, 1)

	pending, err := store.ListDomainsByStatus(domain.DomainStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, store.DeleteDomain("domain-1"))
	_, err = store.GetDomain("domain-1")
	assert.ErrorIs(t, err, storage.ErrDomainNotFound)
}

func TestMemoryStore_MailboxUserOperations(t *testing.T) {
	store := NewStore()

	user := &domain.MailboxUser{
		ID:        "user-1",
		FullName:  "Alice Example",
		Username:  "alice",
		DomainID:  "domain-1",
		Email:     "alice@example.com",
		Role:      domain.RoleUser,
		Active:    true,
		CreatedAt: time.Now(),
	}

	require.NoError(t, store.CreateMailboxUser(user))

	// 地址占用后重复创建失败
	err := store.CreateMailboxUser(&domain.MailboxUser{
		ID:    "user-2",
		Email: "alice@example.com",
	})
	assert.ErrorIs(t, err, storage.ErrEmailExists)

	retrieved, err := store.GetMailboxUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", retrieved.ID)

	count, err := store.CountMailboxUsersByDomainID("domain-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Email 不允许通过 Update 变更
	retrieved.Email = "other@example.com"
	retrieved.Active = false
	require.NoError(t, store.UpdateMailboxUser(retrieved))

	updated, err := store.GetMailboxUser("user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.False(t, updated.Active)

	require.NoError(t, store.UpdateLastLogin("user-1"))
	updated, err = store.GetMailboxUser("user-1")
	require.NoError(t, err)
	assert.NotNil(t, updated.LastLoginAt)

	// 删除后地址被释放
	require.NoError(t, store.DeleteMailboxUser("user-1"))
	err = store.CreateMailboxUser(&domain.MailboxUser{
		ID:    "user-3",
		Email: "alice@example.com",
	})
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentEmailClaim(t *testing.T) {
	store := NewStore()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs[n] = store.CreateMailboxUser(&domain.MailboxUser{
				ID:    string(rune('a' + n)),
				Email: "contended@example.com",
			})
		}(i)
	}
	wg.Wait()

	// 并发抢占同一地址时恰好一个成功
	success := 0
	for _, err := range errs {
		if err == nil {
			success++
		} else {
			assert.ErrorIs(t, err, storage.ErrEmailExists)
		}
	}
	assert.Equal(t, 1, success)
}

func TestMemoryStore_MessageOperations(t *testing.T) {
	store := NewStore()
	base := time.Now()

	for i, m := range []*domain.Message{
		{ID: "msg-1", From: "alice@example.com", To: "bob@example.com", Subject: "first"},
		{ID: "msg-2", From: "alice@example.com", To: "bob@example.com", Subject: "second"},
		{ID: "msg-3", From: "bob@example.com", To: "alice@example.com", Subject: "reply", AttachmentNames: []string{"a.txt"}},
	} {
		m.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, store.SaveMessage(m))
	}

	// 收件箱按时间降序
	inbox, err := store.ListInbox("bob@example.com")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "msg-2", inbox[0].ID)
	assert.Equal(t, "msg-1", inbox[1].ID)

	sent, err := store.ListSent("alice@example.com")
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, "msg-2", sent[0].ID)

	unread, err := store.CountUnread("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	// 标记已读是幂等的
	require.NoError(t, store.MarkMessageRead("msg-1"))
	require.NoError(t, store.MarkMessageRead("msg-1"))

	unread, err = store.CountUnread("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	err = store.MarkMessageRead("missing")
	assert.ErrorIs(t, err, storage.ErrMessageNotFound)

	// 返回的是副本，修改不影响存储
	msg, err := store.GetMessage("msg-3")
	require.NoError(t, err)
	msg.AttachmentNames[0] = "tampered"
	again, err := store.GetMessage("msg-3")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", again.AttachmentNames[0])
}

func TestMemoryStore_CredentialOperations(t *testing.T) {
	store := NewStore()

	cred := &domain.Credential{
		UID:          "uid-1",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.CreateCredential(cred))

	err := store.CreateCredential(&domain.Credential{UID: "uid-2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, storage.ErrCredentialExists)

	retrieved, err := store.GetCredentialByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", retrieved.UID)

	retrieved, err = store.GetCredentialByUID("uid-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", retrieved.Email)

	// 删除凭证释放地址（补偿路径依赖这一点）
	require.NoError(t, store.DeleteCredential("uid-1"))
	assert.NoError(t, store.CreateCredential(&domain.Credential{UID: "uid-3", Email: "alice@example.com"}))

	err = store.DeleteCredential("missing")
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)
}
