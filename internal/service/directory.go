package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webmail/backend/internal/config"
	"webmail/backend/internal/credential"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage"
)

// DirectoryService 管理域名与邮箱用户目录。
// 用户创建跨目录和凭证两个系统，这里负责两步写入和失败补偿。
type DirectoryService struct {
	store    storage.Store
	provider credential.Provider
	cache    DomainCache
	metrics  *monitoring.Metrics
	cfg      *config.Config
	log      *zap.Logger
}

// NewDirectoryService 创建目录服务
func NewDirectoryService(store storage.Store, provider credential.Provider, cfg *config.Config, log *zap.Logger) *DirectoryService {
	return &DirectoryService{
		store:    store,
		provider: provider,
		cfg:      cfg,
		log:      log,
	}
}

// SetDomainCache 注入可投递域名缓存。
// 域名停用或删除会改变可投递集合，必须随之失效缓存。
func (s *DirectoryService) SetDomainCache(cache DomainCache) {
	s.cache = cache
}

// SetMetrics 注入监控指标收集器
func (s *DirectoryService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

func (s *DirectoryService) invalidateDomainCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVerifiedDomains(context.Background()); err != nil {
		s.log.Warn("failed to invalidate verified domain cache", zap.Error(err))
	}
}

// ========== 域名管理 ==========

// CreateDomain 注册新域名并派生其 DNS 记录，初始状态为待验证。
func (s *DirectoryService) CreateDomain(name, createdBy string) (*domain.Domain, error) {
	name, err := domain.ValidateDomainName(name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	d := &domain.Domain{
		ID:                uuid.NewString(),
		Name:              name,
		Status:            domain.DomainStatusPending,
		Verified:          false,
		Active:            false,
		VerificationToken: uuid.NewString(),
		ServerIP:          s.cfg.Mail.ServerIP,
		DNSRecords:        domain.DeriveDNSRecords(name, s.cfg.Mail.ServerIP),
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.store.SaveDomain(d); err != nil {
		if errors.Is(err, storage.ErrDomainExists) {
			return nil, domain.NewConflictError("domain", "域名已注册: "+name)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDomainCreated()
	}

	s.log.Info("domain registered",
		zap.String("domain_id", d.ID),
		zap.String("name", d.Name))

	return d, nil
}

// GetDomain 根据 ID 获取域名
func (s *DirectoryService) GetDomain(id string) (*domain.Domain, error) {
	d, err := s.store.GetDomain(id)
	if err != nil {
		if errors.Is(err, storage.ErrDomainNotFound) {
			return nil, domain.NewNotFoundError("domain", id)
		}
		return nil, err
	}
	return d, nil
}

// ListDomains 列出所有域名
func (s *DirectoryService) ListDomains() ([]domain.Domain, error) {
	return s.store.ListDomains()
}

// DomainInstructions 域名的 DNS 配置指引
type DomainInstructions struct {
	Domain     string              `json:"domain"`
	Status     domain.DomainStatus `json:"status"`
	DNSRecords domain.DNSRecordSet `json:"dnsRecords"`
}

// GetDomainInstructions 返回域名的 DNS 配置指引。
// 记录值取创建时的快照，保证多次查看内容一致。
func (s *DirectoryService) GetDomainInstructions(id string) (*DomainInstructions, error) {
	d, err := s.GetDomain(id)
	if err != nil {
		return nil, err
	}
	return &DomainInstructions{
		Domain:     d.Name,
		Status:     d.Status,
		DNSRecords: d.DNSRecords,
	}, nil
}

// SetDomainActive 启用或停用域名的收发能力。
// 停用后域名上的地址立即拒收，重新启用即恢复。
func (s *DirectoryService) SetDomainActive(id string, active bool) (*domain.Domain, error) {
	d, err := s.GetDomain(id)
	if err != nil {
		return nil, err
	}
	d.Active = active
	if err := s.store.UpdateDomain(d); err != nil {
		return nil, err
	}
	s.invalidateDomainCache()
	return d, nil
}

// DeleteDomain 删除域名。名下仍有用户时拒绝删除，
// 避免留下指向已删除域名的孤儿地址。
func (s *DirectoryService) DeleteDomain(id string) error {
	if _, err := s.GetDomain(id); err != nil {
		return err
	}

	count, err := s.store.CountMailboxUsersByDomainID(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.NewConflictError("domain", "域名下仍有用户，无法删除")
	}

	if err := s.store.DeleteDomain(id); err != nil {
		if errors.Is(err, storage.ErrDomainNotFound) {
			return domain.NewNotFoundError("domain", id)
		}
		return err
	}
	s.invalidateDomainCache()

	s.log.Info("domain deleted", zap.String("domain_id", id))
	return nil
}

// ========== 用户管理 ==========

// CreateUserInput 创建用户的输入参数
type CreateUserInput struct {
	FullName        string          `json:"fullName"`
	Username        string          `json:"username"`
	DomainID        string          `json:"domainId"`
	Password        string          `json:"password"`
	ConfirmPassword string          `json:"confirmPassword"`
	Role            domain.UserRole `json:"role"`
}

// CheckUserExists 检查邮件地址是否已被占用
func (s *DirectoryService) CheckUserExists(email string) (bool, error) {
	_, err := s.store.GetMailboxUserByEmail(email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrUserNotFound) {
		return false, nil
	}
	return false, err
}

// ResolveAddress 由用户名和域名 ID 合成完整地址并查询占用情况。
// 域名不存在时返回 NotFoundError。
func (s *DirectoryService) ResolveAddress(username, domainID string) (bool, string, error) {
	username, err := domain.ValidateUsername(username)
	if err != nil {
		return false, "", err
	}

	d, err := s.GetDomain(domainID)
	if err != nil {
		return false, "", err
	}

	email := domain.ComposeEmail(username, d.Name)
	exists, err := s.CheckUserExists(email)
	if err != nil {
		return false, "", err
	}
	return exists, email, nil
}

// CreateUser 创建邮箱用户。
//
// 两步写入：先在凭证系统注册地址（第一道唯一性闸门），
// 再写目录记录（email 唯一索引是第二道）。目录写入失败时删除
// 刚建的凭证做补偿，两道闸门保证并发创建同一地址最多一个成功。
func (s *DirectoryService) CreateUser(input CreateUserInput) (*domain.MailboxUser, error) {
	username, err := domain.ValidateUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password, input.ConfirmPassword); err != nil {
		return nil, err
	}

	d, err := s.GetDomain(input.DomainID)
	if err != nil {
		return nil, err
	}

	email := domain.ComposeEmail(username, d.Name)

	// 预检查只是给调用方更快的失败反馈，真正的并发保护在下面两道唯一约束
	exists, err := s.CheckUserExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewConflictError("user", "邮件地址已被占用: "+email)
	}

	uid, err := s.provider.Create(email, input.Password)
	if err != nil {
		if errors.Is(err, credential.ErrEmailInUse) {
			return nil, domain.NewConflictError("user", "邮件地址已被占用: "+email)
		}
		return nil, domain.NewExternalError("credential", "create", err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}

	now := time.Now()
	user := &domain.MailboxUser{
		ID:            uuid.NewString(),
		FullName:      input.FullName,
		Username:      username,
		DomainID:      d.ID,
		Email:         email,
		Role:          role,
		Active:        true,
		CredentialUID: uid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateMailboxUser(user); err != nil {
		// 目录写入失败，补偿删除刚建的凭证
		if delErr := s.provider.Delete(uid); delErr != nil && !errors.Is(delErr, credential.ErrCredentialNotFound) {
			s.log.Error("failed to compensate credential after directory write failure",
				zap.String("email", email),
				zap.String("credential_uid", uid),
				zap.Error(delErr))
		}
		if errors.Is(err, storage.ErrEmailExists) {
			return nil, domain.NewConflictError("user", "邮件地址已被占用: "+email)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordUserCreated()
	}

	s.log.Info("mailbox user created",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("domain_id", d.ID))

	return user, nil
}

// GetUser 根据 ID 获取用户
func (s *DirectoryService) GetUser(id string) (*domain.MailboxUser, error) {
	user, err := s.store.GetMailboxUser(id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, domain.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return user, nil
}

// ListUsers 列出所有用户
func (s *DirectoryService) ListUsers() ([]domain.MailboxUser, error) {
	return s.store.ListMailboxUsers()
}

// ListUsersByDomain 列出指定域名下的用户
func (s *DirectoryService) ListUsersByDomain(domainID string) ([]domain.MailboxUser, error) {
	return s.store.ListMailboxUsersByDomainID(domainID)
}

// SetUserActive 启用或停用用户
func (s *DirectoryService) SetUserActive(id string, active bool) (*domain.MailboxUser, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	user.Active = active
	if err := s.store.UpdateMailboxUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 删除用户及其凭证，释放邮件地址。
func (s *DirectoryService) DeleteUser(id string) error {
	user, err := s.GetUser(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteMailboxUser(id); err != nil {
		return err
	}

	if user.CredentialUID != "" {
		if err := s.provider.Delete(user.CredentialUID); err != nil && !errors.Is(err, credential.ErrCredentialNotFound) {
			// 目录记录已删，凭证残留只影响地址复用，记录后人工处理
			s.log.Error("failed to delete credential for removed user",
				zap.String("user_id", id),
				zap.String("credential_uid", user.CredentialUID),
				zap.Error(err))
		}
	}

	s.log.Info("mailbox user deleted", zap.String("user_id", id), zap.String("email", user.Email))
	return nil
}
