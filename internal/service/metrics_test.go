package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage/memory"
)

// 指标注册在默认 registry，整个测试二进制只创建一次
var serviceMetrics = monitoring.NewMetrics()

func TestServiceMetrics(t *testing.T) {
	store := memory.NewStore()
	directory := newDirectoryService(store)
	directory.SetMetrics(serviceMetrics)
	verifier := NewVerifierService(store, InstantChecker{}, nil, testConfig(), zap.NewNop())
	verifier.SetMetrics(serviceMetrics)
	delivery := NewDeliveryService(store, nil, testConfig(), zap.NewNop())
	delivery.SetMetrics(serviceMetrics)

	ctx := context.Background()

	t.Run("域名注册与验证计数", func(t *testing.T) {
		created := testutil.ToFloat64(serviceMetrics.DomainsCreated)
		verified := testutil.ToFloat64(serviceMetrics.DomainVerifications.WithLabelValues("verified"))

		d, err := directory.CreateDomain("example.com", "admin-1")
		require.NoError(t, err)
		_, err = verifier.VerifyDomain(ctx, d.ID)
		require.NoError(t, err)

		assert.Equal(t, created+1, testutil.ToFloat64(serviceMetrics.DomainsCreated))
		assert.Equal(t, verified+1, testutil.ToFloat64(serviceMetrics.DomainVerifications.WithLabelValues("verified")))
	})

	t.Run("用户创建计数", func(t *testing.T) {
		users := testutil.ToFloat64(serviceMetrics.UsersCreated)

		domains, err := directory.ListDomains()
		require.NoError(t, err)
		require.NotEmpty(t, domains)

		_, err = directory.CreateUser(CreateUserInput{
			Username:        "alice",
			DomainID:        domains[0].ID,
			Password:        "Passw0rd",
			ConfirmPassword: "Passw0rd",
		})
		require.NoError(t, err)

		assert.Equal(t, users+1, testutil.ToFloat64(serviceMetrics.UsersCreated))
	})

	t.Run("投递与附件丢弃计数", func(t *testing.T) {
		sent := testutil.ToFloat64(serviceMetrics.MessagesSent)
		dropped := testutil.ToFloat64(serviceMetrics.AttachmentsDropped)

		result, err := delivery.SendMessage(ctx, SendMessageInput{
			From:    "ops@example.com",
			To:      "alice@example.com",
			Subject: "hello",
			Content: "hi",
			Attachments: []Attachment{
				{Name: "small.txt", Size: 1024},
				{Name: "huge.iso", Size: 11 * 1024 * 1024},
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)

		assert.Equal(t, sent+1, testutil.ToFloat64(serviceMetrics.MessagesSent))
		assert.Equal(t, dropped+1, testutil.ToFloat64(serviceMetrics.AttachmentsDropped))

		read := testutil.ToFloat64(serviceMetrics.MessagesRead)
		require.NoError(t, delivery.MarkRead(result.Message.ID, "alice@example.com"))
		assert.Equal(t, read+1, testutil.ToFloat64(serviceMetrics.MessagesRead))
	})

	t.Run("收件人拒绝计数", func(t *testing.T) {
		format := testutil.ToFloat64(serviceMetrics.RecipientRejections.WithLabelValues("format"))
		unverified := testutil.ToFloat64(serviceMetrics.RecipientRejections.WithLabelValues("unverified"))

		require.Error(t, delivery.ValidateRecipient(ctx, "not-an-address"))
		require.Error(t, delivery.ValidateRecipient(ctx, "bob@other.com"))

		assert.Equal(t, format+1, testutil.ToFloat64(serviceMetrics.RecipientRejections.WithLabelValues("format")))
		assert.Equal(t, unverified+1, testutil.ToFloat64(serviceMetrics.RecipientRejections.WithLabelValues("unverified")))
	})
}
