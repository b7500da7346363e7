package credential

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage"
)

var (
	// ErrEmailInUse 地址已在凭证系统注册
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials 地址或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCredentialNotFound 凭证不存在
	ErrCredentialNotFound = errors.New("credential not found")
)

// Provider 抽象登录凭证系统。
// 目录服务先通过 Create 占住地址，目录写入失败时调用 Delete 补偿，
// 两步之间凭证系统是地址唯一性的第一道闸门。
type Provider interface {
	Create(email, password string) (uid string, err error)
	Verify(email, password string) (uid string, err error)
	Delete(uid string) error
}

// LocalProvider 基于本地存储和 bcrypt 的凭证实现。
type LocalProvider struct {
	creds storage.CredentialRepository
}

// NewLocalProvider 创建本地凭证提供方
func NewLocalProvider(creds storage.CredentialRepository) *LocalProvider {
	return &LocalProvider{creds: creds}
}

// Create 注册新凭证，地址已被占用时返回 ErrEmailInUse。
func (p *LocalProvider) Create(email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	now := time.Now()
	cred := &domain.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.creds.CreateCredential(cred); err != nil {
		if errors.Is(err, storage.ErrCredentialExists) {
			return "", ErrEmailInUse
		}
		return "", err
	}
	return cred.UID, nil
}

// Verify 校验地址与密码，成功返回凭证 UID。
// 地址不存在与密码错误返回同一个错误，不向调用方泄露差异。
func (p *LocalProvider) Verify(email, password string) (string, error) {
	cred, err := p.creds.GetCredentialByEmail(email)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return cred.UID, nil
}

// Delete 删除凭证，释放其占用的地址。补偿路径依赖这里的幂等语义：
// 凭证已不存在时返回 ErrCredentialNotFound，调用方可安全忽略。
func (p *LocalProvider) Delete(uid string) error {
	err := p.creds.DeleteCredential(uid)
	if errors.Is(err, storage.ErrCredentialNotFound) {
		return ErrCredentialNotFound
	}
	return err
}
