package storage

import (
	"errors"

	"webmail/backend/internal/domain"
)

var (
	// ErrDomainNotFound 域名未找到错误
	ErrDomainNotFound = errors.New("domain not found")
	// ErrDomainExists 域名已存在错误
	ErrDomainExists = errors.New("domain already exists")
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮件地址已被占用错误
	ErrEmailExists = errors.New("email already exists")
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrCredentialNotFound 凭证未找到错误
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialExists 凭证已存在错误
	ErrCredentialExists = errors.New("credential already exists")
)

// DomainRepository 定义域名数据存取操作。
// SaveDomain 依赖 Name 上的唯一约束，重名时返回 ErrDomainExists。
type DomainRepository interface {
	SaveDomain(d *domain.Domain) error
	GetDomain(id string) (*domain.Domain, error)
	GetDomainByName(name string) (*domain.Domain, error)
	ListDomains() ([]domain.Domain, error)
	ListVerifiedDomains() ([]domain.Domain, error)
	ListDomainsByStatus(status domain.DomainStatus) ([]domain.Domain, error)
	UpdateDomain(d *domain.Domain) error
	DeleteDomain(id string) error
}

// MailboxUserRepository 定义邮箱用户数据存取操作。
// CreateMailboxUser 必须原子地检查并占用 Email：并发创建同一地址时
// 只有一个调用成功，其余返回 ErrEmailExists。
type MailboxUserRepository interface {
	CreateMailboxUser(user *domain.MailboxUser) error
	GetMailboxUser(id string) (*domain.MailboxUser, error)
	GetMailboxUserByEmail(email string) (*domain.MailboxUser, error)
	ListMailboxUsers() ([]domain.MailboxUser, error)
	ListMailboxUsersByDomainID(domainID string) ([]domain.MailboxUser, error)
	CountMailboxUsersByDomainID(domainID string) (int, error)
	UpdateMailboxUser(user *domain.MailboxUser) error
	UpdateLastLogin(userID string) error
	DeleteMailboxUser(id string) error
}

// MessageRepository 定义邮件数据存取操作。
// 列表均按 Timestamp 降序返回。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	GetMessage(id string) (*domain.Message, error)
	ListInbox(address string) ([]domain.Message, error)
	ListSent(address string) ([]domain.Message, error)
	CountUnread(address string) (int, error)
	MarkMessageRead(id string) error
}

// CredentialRepository 定义登录凭证数据存取操作。
// CreateCredential 与 CreateMailboxUser 同样以 Email 唯一约束保证原子占用。
type CredentialRepository interface {
	CreateCredential(cred *domain.Credential) error
	GetCredentialByUID(uid string) (*domain.Credential, error)
	GetCredentialByEmail(email string) (*domain.Credential, error)
	DeleteCredential(uid string) error
}

// Store 聚合所有存储接口，由内存实现和 SQL 实现分别满足。
type Store interface {
	DomainRepository
	MailboxUserRepository
	MessageRepository
	CredentialRepository

	Close() error
	Health() error
}
