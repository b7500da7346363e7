package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webmail/backend/internal/config"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage"
)

// DomainCache 缓存已验证域名集合，Redis 实现和本地内存实现都满足它。
type DomainCache interface {
	GetVerifiedDomains(ctx context.Context) ([]string, error)
	CacheVerifiedDomains(ctx context.Context, names []string, ttl time.Duration) error
	InvalidateVerifiedDomains(ctx context.Context) error
}

const verifiedDomainsTTL = 30 * time.Second

// DeliveryService 负责邮件投递流程：收件人校验、发送、收件箱与已读状态。
type DeliveryService struct {
	store   storage.Store
	cache   DomainCache
	metrics *monitoring.Metrics
	cfg     *config.Config
	log     *zap.Logger
}

// NewDeliveryService 创建投递服务
func NewDeliveryService(store storage.Store, cache DomainCache, cfg *config.Config, log *zap.Logger) *DeliveryService {
	return &DeliveryService{
		store: store,
		cache: cache,
		cfg:   cfg,
		log:   log,
	}
}

// SetMetrics 注入监控指标收集器
func (s *DeliveryService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// verifiedDomainSet 返回可投递域名集合，优先读缓存，未命中回源后写缓存。
// 只有已验证且启用中的域名可投递，停用的域名在回源时被过滤。
// 缓存故障只记日志不阻断投递。
func (s *DeliveryService) verifiedDomainSet(ctx context.Context) (map[string]bool, []string, error) {
	if s.cache != nil {
		if names, err := s.cache.GetVerifiedDomains(ctx); err == nil {
			return toSet(names), names, nil
		}
	}

	domains, err := s.store.ListVerifiedDomains()
	if err != nil {
		return nil, nil, err
	}

	names := make([]string, 0, len(domains))
	for i := range domains {
		if !domains[i].CanSend() {
			continue
		}
		names = append(names, domains[i].Name)
	}
	sort.Strings(names)

	if s.cache != nil {
		if err := s.cache.CacheVerifiedDomains(ctx, names, verifiedDomainsTTL); err != nil {
			s.log.Warn("failed to cache verified domains", zap.Error(err))
		}
	}

	return toSet(names), names, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// ValidateRecipient 校验收件人地址：先查形状，再查域名是否已验证。
// 返回的错误消息随当前已验证域名集合变化，便于用户自查。
func (s *DeliveryService) ValidateRecipient(ctx context.Context, to string) error {
	to = strings.ToLower(strings.TrimSpace(to))
	_, domainName, ok := domain.SplitAddress(to)
	if !ok {
		s.recordRejection("format")
		return domain.NewValidationError("to", "收件人地址格式不正确")
	}

	set, names, err := s.verifiedDomainSet(ctx)
	if err != nil {
		return err
	}

	if set[domainName] {
		return nil
	}

	if len(names) == 0 {
		s.recordRejection("no_verified_domains")
		return domain.NewValidationError("to", "系统尚无已验证的域名，无法投递")
	}
	s.recordRejection("unverified")
	return domain.NewValidationError("to",
		fmt.Sprintf("收件人域名未验证: %s，已验证域名: %s", domainName, strings.Join(names, ", ")))
}

// Attachment 待发送的附件元数据，内容在外部对象存储
type Attachment struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// SendMessageInput 发送邮件的输入参数
type SendMessageInput struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
}

// SendResult 发送结果，Warnings 携带被丢弃附件的提示
type SendResult struct {
	Message  *domain.Message `json:"message"`
	Warnings []string        `json:"warnings,omitempty"`
}

// SendMessage 发送邮件。
// 超过大小上限的附件被丢弃并记入警告，邮件本身照常投递；
// 全部附件被丢弃也不算失败。
func (s *DeliveryService) SendMessage(ctx context.Context, input SendMessageInput) (*SendResult, error) {
	if input.Subject == "" {
		return nil, domain.NewValidationError("subject", "邮件主题不能为空")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewValidationError("content", "邮件正文不能为空")
	}

	to := strings.ToLower(strings.TrimSpace(input.To))
	if err := s.ValidateRecipient(ctx, to); err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(input.Attachments))
	var warnings []string
	for _, a := range input.Attachments {
		if a.Size > s.cfg.Mail.MaxAttachment {
			warnings = append(warnings,
				fmt.Sprintf("附件 %s 超过 %dMiB 大小限制，已被移除", a.Name, s.cfg.Mail.MaxAttachment/(1024*1024)))
			if s.metrics != nil {
				s.metrics.RecordAttachmentDropped(a.Size)
			}
			continue
		}
		kept = append(kept, a.Name)
	}

	message := &domain.Message{
		ID:              uuid.NewString(),
		From:            input.From,
		To:              to,
		Subject:         input.Subject,
		Content:         input.Content,
		AttachmentNames: kept,
		Timestamp:       time.Now(),
		Read:            false,
	}

	if err := s.store.SaveMessage(message); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMessageSent()
	}

	s.log.Info("message delivered",
		zap.String("message_id", message.ID),
		zap.String("from", message.From),
		zap.String("to", message.To),
		zap.Int("attachments_kept", len(kept)),
		zap.Int("attachments_dropped", len(warnings)))

	return &SendResult{Message: message, Warnings: warnings}, nil
}

// Inbox 返回地址收到的邮件，按时间降序
func (s *DeliveryService) Inbox(address string) ([]domain.Message, error) {
	return s.store.ListInbox(address)
}

// Sent 返回地址发出的邮件，按时间降序
func (s *DeliveryService) Sent(address string) ([]domain.Message, error) {
	return s.store.ListSent(address)
}

// UnreadCount 返回地址的未读邮件数
func (s *DeliveryService) UnreadCount(address string) (int, error) {
	return s.store.CountUnread(address)
}

// MarkRead 将邮件标记为已读，只有收件人可以标记。
// 重复标记是幂等操作，同样返回成功。
func (s *DeliveryService) MarkRead(id, requester string) error {
	message, err := s.store.GetMessage(id)
	if err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			return domain.NewNotFoundError("message", id)
		}
		return err
	}

	if message.To != requester {
		return domain.NewNotFoundError("message", id)
	}

	if err := s.store.MarkMessageRead(id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordMessageRead()
	}
	return nil
}

func (s *DeliveryService) recordRejection(reason string) {
	if s.metrics != nil {
		s.metrics.RecordRecipientRejection(reason)
	}
}

// RecipientSuggestion 收件人补全建议
type RecipientSuggestion struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// SuggestRecipients 返回可投递的收件人列表：
// 已验证域名上的启用用户，按地址排序。
func (s *DeliveryService) SuggestRecipients(ctx context.Context) ([]RecipientSuggestion, error) {
	set, _, err := s.verifiedDomainSet(ctx)
	if err != nil {
		return nil, err
	}

	users, err := s.store.ListMailboxUsers()
	if err != nil {
		return nil, err
	}

	out := make([]RecipientSuggestion, 0, len(users))
	for i := range users {
		u := &users[i]
		if !u.Active {
			continue
		}
		_, domainName, ok := domain.SplitAddress(u.Email)
		if !ok || !set[domainName] {
			continue
		}
		out = append(out, RecipientSuggestion{Email: u.Email, FullName: u.FullName})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Email < out[j].Email
	})
	return out, nil
}
