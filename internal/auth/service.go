package auth

import (
	"errors"

	"go.uber.org/zap"

	"webmail/backend/internal/auth/jwt"
	"webmail/backend/internal/credential"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/storage"
)

var (
	// ErrInvalidCredentials 地址或密码错误
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserInactive 用户已停用
	ErrUserInactive = errors.New("user is inactive")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
)

// Service 认证服务，负责登录、令牌刷新与当前用户查询。
type Service struct {
	users      storage.MailboxUserRepository
	provider   credential.Provider
	jwtManager *jwt.Manager
	metrics    *monitoring.Metrics
	log        *zap.Logger
}

// NewService 创建认证服务
func NewService(users storage.MailboxUserRepository, provider credential.Provider, jwtManager *jwt.Manager, log *zap.Logger) *Service {
	return &Service{
		users:      users,
		provider:   provider,
		jwtManager: jwtManager,
		log:        log,
	}
}

// SetMetrics 注入监控指标收集器
func (s *Service) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

func (s *Service) recordLogin(result string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(result)
	}
}

// LoginResult 登录结果
type LoginResult struct {
	User   *domain.MailboxUser `json:"user"`
	Tokens *jwt.TokenPair      `json:"tokens"`
}

// Login 用邮件地址和密码登录。
// 凭证校验通过但目录里查不到用户属于数据不一致，按无效凭证处理并记录日志。
func (s *Service) Login(email, password string) (*LoginResult, error) {
	if _, err := s.provider.Verify(email, password); err != nil {
		if errors.Is(err, credential.ErrInvalidCredentials) {
			s.recordLogin("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := s.users.GetMailboxUserByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.log.Warn("credential exists but directory user missing",
				zap.String("email", email))
			s.recordLogin("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Active {
		s.recordLogin("failure")
		return nil, ErrUserInactive
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		// 登录时间只是辅助信息，更新失败不阻断登录
		s.log.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.recordLogin("success")
	s.log.Info("user logged in", zap.String("user_id", user.ID), zap.String("email", user.Email))

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh 用刷新令牌换取新的访问令牌
func (s *Service) Refresh(refreshToken string) (string, error) {
	return s.jwtManager.RefreshAccessToken(refreshToken)
}

// GetUserByID 根据 ID 获取用户
func (s *Service) GetUserByID(id string) (*domain.MailboxUser, error) {
	user, err := s.users.GetMailboxUser(id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
