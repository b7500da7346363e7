package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmail/backend/internal/cache"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage/memory"
)

// newDeliveryFixture 准备一个已验证域名 example.com 和两个用户
func newDeliveryFixture(t *testing.T) (*DeliveryService, *DirectoryService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	directory := newDirectoryService(store)
	verifier := NewVerifierService(store, InstantChecker{}, nil, testConfig(), zap.NewNop())
	delivery := NewDeliveryService(store, nil, testConfig(), zap.NewNop())

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)
	_, err = verifier.VerifyDomain(context.Background(), d.ID)
	require.NoError(t, err)

	for _, username := range []string{"alice", "bob"} {
		_, err := directory.CreateUser(CreateUserInput{
			FullName:        username,
			Username:        username,
			DomainID:        d.ID,
			Password:        "Passw0rd",
			ConfirmPassword: "Passw0rd",
		})
		require.NoError(t, err)
	}

	return delivery, directory, store
}

func TestDeliveryService_ValidateRecipient(t *testing.T) {
	delivery, _, _ := newDeliveryFixture(t)
	ctx := context.Background()

	t.Run("已验证域名上的地址通过", func(t *testing.T) {
		assert.NoError(t, delivery.ValidateRecipient(ctx, "bob@example.com"))
	})

	t.Run("地址大小写与空白被规范化", func(t *testing.T) {
		assert.NoError(t, delivery.ValidateRecipient(ctx, "  Bob@Example.COM "))
	})

	t.Run("形状不合法", func(t *testing.T) {
		err := delivery.ValidateRecipient(ctx, "not-an-address")
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("未验证域名被拒绝并列出可用域名", func(t *testing.T) {
		err := delivery.ValidateRecipient(ctx, "bob@other.com")
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "other.com")
		assert.Contains(t, err.Error(), "example.com")
	})

	t.Run("无任何已验证域名时提示不同", func(t *testing.T) {
		empty := NewDeliveryService(memory.NewStore(), nil, testConfig(), zap.NewNop())
		err := empty.ValidateRecipient(ctx, "bob@example.com")
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "尚无已验证的域名")
	})
}

func TestDeliveryService_SendMessage(t *testing.T) {
	delivery, _, _ := newDeliveryFixture(t)
	ctx := context.Background()

	t.Run("发送成功", func(t *testing.T) {
		result, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@example.com",
			Subject: "hello",
			Content: "hi bob",
			Attachments: []Attachment{
				{Name: "small.txt", Size: 1024},
			},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Message.ID)
		assert.False(t, result.Message.Read)
		assert.Equal(t, []string{"small.txt"}, result.Message.AttachmentNames)
		assert.Empty(t, result.Warnings)
	})

	t.Run("超大附件被丢弃并产生警告", func(t *testing.T) {
		result, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@example.com",
			Subject: "attachments",
			Content: "see attached",
			Attachments: []Attachment{
				{Name: "ok.pdf", Size: 5 * 1024 * 1024},
				{Name: "huge.iso", Size: 11 * 1024 * 1024},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ok.pdf"}, result.Message.AttachmentNames)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "huge.iso")
		assert.Contains(t, result.Warnings[0], "10MiB")
	})

	t.Run("全部附件被丢弃仍然投递", func(t *testing.T) {
		result, err := delivery.SendMessage(ctx, SendMessageInput{
			From:        "alice@example.com",
			To:          "bob@example.com",
			Subject:     "only big files",
			Content:     "files inbound",
			Attachments: []Attachment{{Name: "huge.iso", Size: 20 * 1024 * 1024}},
		})
		require.NoError(t, err)
		assert.Empty(t, result.Message.AttachmentNames)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("收件人校验失败不落库", func(t *testing.T) {
		_, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@unverified.com",
			Subject: "hello",
			Content: "hi",
		})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("主题为空被拒绝", func(t *testing.T) {
		_, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@example.com",
			Content: "hi",
		})
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "主题")
	})

	t.Run("正文为空白被拒绝", func(t *testing.T) {
		_, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@example.com",
			Subject: "hello",
			Content: "   ",
		})
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "正文")
	})
}

func TestDeliveryService_InboxAndSent(t *testing.T) {
	delivery, _, _ := newDeliveryFixture(t)
	ctx := context.Background()

	subjects := []string{"first", "second", "third"}
	for _, subject := range subjects {
		_, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "alice@example.com",
			To:      "bob@example.com",
			Subject: subject,
			Content: "body of " + subject,
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	inbox, err := delivery.Inbox("bob@example.com")
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	// 最新的在最前
	assert.Equal(t, "third", inbox[0].Subject)
	assert.Equal(t, "first", inbox[2].Subject)

	sent, err := delivery.Sent("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, sent, 3)

	empty, err := delivery.Inbox("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeliveryService_MarkRead(t *testing.T) {
	delivery, _, _ := newDeliveryFixture(t)
	ctx := context.Background()

	result, err := delivery.SendMessage(ctx, SendMessageInput{
		From:    "alice@example.com",
		To:      "bob@example.com",
		Subject: "unread",
		Content: "please read",
	})
	require.NoError(t, err)
	id := result.Message.ID

	count, err := delivery.UnreadCount("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	t.Run("收件人标记已读", func(t *testing.T) {
		require.NoError(t, delivery.MarkRead(id, "bob@example.com"))

		count, err := delivery.UnreadCount("bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("重复标记幂等", func(t *testing.T) {
		assert.NoError(t, delivery.MarkRead(id, "bob@example.com"))
	})

	t.Run("非收件人不可见", func(t *testing.T) {
		err := delivery.MarkRead(id, "alice@example.com")
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("邮件不存在", func(t *testing.T) {
		err := delivery.MarkRead("missing", "bob@example.com")
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestDeliveryService_SuggestRecipients(t *testing.T) {
	delivery, directory, _ := newDeliveryFixture(t)
	ctx := context.Background()

	// 停用 bob 后不再出现在建议里
	users, err := directory.ListUsers()
	require.NoError(t, err)
	for _, u := range users {
		if u.Username == "bob" {
			_, err := directory.SetUserActive(u.ID, false)
			require.NoError(t, err)
		}
	}

	suggestions, err := delivery.SuggestRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "alice@example.com", suggestions[0].Email)
}

func TestDeliveryService_VerifiedDomainCache(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	local := cache.NewLocalCache(time.Minute)
	defer local.Close()
	domainCache := cache.NewDomainCache(local)
	verifier := NewVerifierService(store, InstantChecker{}, domainCache, testConfig(), zap.NewNop())
	delivery := NewDeliveryService(store, domainCache, testConfig(), zap.NewNop())

	ctx := context.Background()

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)

	// 验证前拒绝，集合被缓存
	err = delivery.ValidateRecipient(ctx, "bob@example.com")
	assert.True(t, domain.IsValidation(err))

	// 验证通过时缓存被失效，下一次校验放行
	_, err = verifier.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)

	assert.NoError(t, delivery.ValidateRecipient(ctx, "bob@example.com"))
}

func TestDeliveryService_DeactivatedDomain(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	local := cache.NewLocalCache(time.Minute)
	defer local.Close()
	domainCache := cache.NewDomainCache(local)
	directory.SetDomainCache(domainCache)
	verifier := NewVerifierService(store, InstantChecker{}, domainCache, testConfig(), zap.NewNop())
	delivery := NewDeliveryService(store, domainCache, testConfig(), zap.NewNop())

	ctx := context.Background()

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)
	_, err = verifier.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)

	require.NoError(t, delivery.ValidateRecipient(ctx, "bob@example.com"))

	// 停用后立即拒收，缓存随停用被失效
	_, err = directory.SetDomainActive(d.ID, false)
	require.NoError(t, err)

	err = delivery.ValidateRecipient(ctx, "bob@example.com")
	require.True(t, domain.IsValidation(err), err)

	// 重新启用即恢复投递
	_, err = directory.SetDomainActive(d.ID, true)
	require.NoError(t, err)

	assert.NoError(t, delivery.ValidateRecipient(ctx, "bob@example.com"))
}

func TestDeliveryService_DeletedDomainCache(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	local := cache.NewLocalCache(time.Minute)
	defer local.Close()
	domainCache := cache.NewDomainCache(local)
	directory.SetDomainCache(domainCache)
	verifier := NewVerifierService(store, InstantChecker{}, domainCache, testConfig(), zap.NewNop())
	delivery := NewDeliveryService(store, domainCache, testConfig(), zap.NewNop())

	ctx := context.Background()

	d, err := directory.CreateDomain("example.com", "admin-1")
	require.NoError(t, err)
	_, err = verifier.VerifyDomain(ctx, d.ID)
	require.NoError(t, err)

	require.NoError(t, delivery.ValidateRecipient(ctx, "bob@example.com"))

	// 删除后域名集合被失效，不再放行过期缓存
	require.NoError(t, directory.DeleteDomain(d.ID))

	err = delivery.ValidateRecipient(ctx, "bob@example.com")
	assert.True(t, domain.IsValidation(err), err)
}
