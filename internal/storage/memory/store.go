package memory

import (
	"sort"
	"sync"
	"time"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage"
)

// Store 使用内存保存域名、用户、凭证与邮件数据，主要用于开发验证和测试。
type Store struct {
	mu          sync.RWMutex
	domains     map[string]*domain.Domain      // domainID -> domain
	byName      map[string]string              // name -> domainID
	users       map[string]*domain.MailboxUser // userID -> user
	byEmail     map[string]string              // email -> userID
	messages    map[string]*domain.Message     // messageID -> message
	credentials map[string]*domain.Credential  // uid -> credential
	byCredEmail map[string]string              // email -> uid
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		domains:     make(map[string]*domain.Domain),
		byName:      make(map[string]string),
		users:       make(map[string]*domain.MailboxUser),
		byEmail:     make(map[string]string),
		messages:    make(map[string]*domain.Message),
		credentials: make(map[string]*domain.Credential),
		byCredEmail: make(map[string]string),
	}
}

// SaveDomain 保存新域名，名称重复时返回 ErrDomainExists。
func (s *Store) SaveDomain(d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[d.Name]; ok && id != d.ID {
		return storage.ErrDomainExists
	}
	clone := *d
	s.domains[d.ID] = &clone
	s.byName[d.Name] = d.ID
	return nil
}

// GetDomain 根据 ID 获取域名。
func (s *Store) GetDomain(id string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok {
		return nil, storage.ErrDomainNotFound
	}
	clone := *d
	return &clone, nil
}

// GetDomainByName 根据域名名称获取域名。
func (s *Store) GetDomainByName(name string) (*domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return nil, storage.ErrDomainNotFound
	}
	clone := *s.domains[id]
	return &clone, nil
}

// ListDomains 列出所有域名，按创建时间降序。
func (s *Store) ListDomains() ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Domain, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListVerifiedDomains 列出所有已验证的域名。
func (s *Store) ListVerifiedDomains() ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Domain, 0)
	for _, d := range s.domains {
		if d.Verified {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ListDomainsByStatus 按验证状态列出域名。
func (s *Store) ListDomainsByStatus(status domain.DomainStatus) ([]domain.Domain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Domain, 0)
	for _, d := range s.domains {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateDomain 更新已存在的域名。
func (s *Store) UpdateDomain(d *domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.domains[d.ID]
	if !ok {
		return storage.ErrDomainNotFound
	}
	if old.Name != d.Name {
		if _, taken := s.byName[d.Name]; taken {
			return storage.ErrDomainExists
		}
		delete(s.byName, old.Name)
		s.byName[d.Name] = d.ID
	}
	d.UpdatedAt = time.Now()
	clone := *d
	s.domains[d.ID] = &clone
	return nil
}

// DeleteDomain 删除域名。
func (s *Store) DeleteDomain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[id]
	if !ok {
		return storage.ErrDomainNotFound
	}
	delete(s.byName, d.Name)
	delete(s.domains, id)
	return nil
}

// CreateMailboxUser 创建邮箱用户。
// 在持锁状态下检查并占用 Email 索引，保证并发创建同一地址时只有一个成功。
func (s *Store) CreateMailboxUser(user *domain.MailboxUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return storage.ErrEmailExists
	}
	clone := *user
	s.users[user.ID] = &clone
	s.byEmail[user.Email] = user.ID
	return nil
}

// GetMailboxUser 根据 ID 获取邮箱用户。
func (s *Store) GetMailboxUser(id string) (*domain.MailboxUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

// GetMailboxUserByEmail 根据邮件地址获取邮箱用户。
func (s *Store) GetMailboxUserByEmail(email string) (*domain.MailboxUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *s.users[id]
	return &clone, nil
}

// ListMailboxUsers 列出所有邮箱用户，按创建时间降序。
func (s *Store) ListMailboxUsers() ([]domain.MailboxUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MailboxUser, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListMailboxUsersByDomainID 列出指定域名下的邮箱用户。
func (s *Store) ListMailboxUsersByDomainID(domainID string) ([]domain.MailboxUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.MailboxUser, 0)
	for _, u := range s.users {
		if u.DomainID == domainID {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountMailboxUsersByDomainID 统计指定域名下的用户数量。
func (s *Store) CountMailboxUsersByDomainID(domainID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, u := range s.users {
		if u.DomainID == domainID {
			count++
		}
	}
	return count, nil
}

// UpdateMailboxUser 更新邮箱用户。Email 不允许变更。
func (s *Store) UpdateMailboxUser(user *domain.MailboxUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.Email = old.Email
	user.UpdatedAt = time.Now()
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

// UpdateLastLogin 更新用户最后登录时间。
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	return nil
}

// DeleteMailboxUser 删除邮箱用户并释放其地址。
func (s *Store) DeleteMailboxUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	return nil
}

// SaveMessage 保存邮件。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *message
	clone.AttachmentNames = append([]string(nil), message.AttachmentNames...)
	s.messages[message.ID] = &clone
	return nil
}

// GetMessage 根据 ID 获取邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	clone := *m
	clone.AttachmentNames = append([]string(nil), m.AttachmentNames...)
	return &clone, nil
}

// ListInbox 列出发给指定地址的邮件，按时间降序。
func (s *Store) ListInbox(address string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByLocked(address, false), nil
}

// ListSent 列出指定地址发出的邮件，按时间降序。
func (s *Store) ListSent(address string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listByLocked(address, true), nil
}

// listByLocked 按收件人或发件人过滤邮件，调用方必须已持有读锁。
func (s *Store) listByLocked(address string, bySender bool) []domain.Message {
	out := make([]domain.Message, 0)
	for _, m := range s.messages {
		match := m.To == address
		if bySender {
			match = m.From == address
		}
		if match {
			clone := *m
			clone.AttachmentNames = append([]string(nil), m.AttachmentNames...)
			out = append(out, clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// CountUnread 统计指定地址的未读邮件数。
func (s *Store) CountUnread(address string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.messages {
		if m.To == address && !m.Read {
			count++
		}
	}
	return count, nil
}

// MarkMessageRead 将邮件标记为已读。重复标记不报错。
func (s *Store) MarkMessageRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	m.Read = true
	return nil
}

// CreateCredential 创建登录凭证，Email 重复时返回 ErrCredentialExists。
func (s *Store) CreateCredential(cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCredEmail[cred.Email]; taken {
		return storage.ErrCredentialExists
	}
	clone := *cred
	s.credentials[cred.UID] = &clone
	s.byCredEmail[cred.Email] = cred.UID
	return nil
}

// GetCredentialByUID 根据 UID 获取凭证。
func (s *Store) GetCredentialByUID(uid string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[uid]
	if !ok {
		return nil, storage.ErrCredentialNotFound
	}
	clone := *c
	return &clone, nil
}

// GetCredentialByEmail 根据邮件地址获取凭证。
func (s *Store) GetCredentialByEmail(email string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uid, ok := s.byCredEmail[email]
	if !ok {
		return nil, storage.ErrCredentialNotFound
	}
	clone := *s.credentials[uid]
	return &clone, nil
}

// DeleteCredential 删除凭证并释放其地址。
func (s *Store) DeleteCredential(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[uid]
	if !ok {
		return storage.ErrCredentialNotFound
	}
	delete(s.byCredEmail, c.Email)
	delete(s.credentials, uid)
	return nil
}

// Close 关闭存储，内存实现无需清理。
func (s *Store) Close() error {
	return nil
}

// Health 健康检查，内存实现永远健康。
func (s *Store) Health() error {
	return nil
}
