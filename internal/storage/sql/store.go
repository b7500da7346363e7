package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"webmail/backend/internal/domain"
	"webmail/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）。
// 连接池由 database/sql 管理，查询与迁移走 GORM；
// TranslateError 开启后唯一约束冲突统一转成 gorm.ErrDuplicatedKey，
// 这是邮件地址和域名原子占用的数据库侧依据。
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建SQL数据库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	switch driverName {
	case "mysql":
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	case "postgres":
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}

	// 自动执行数据库迁移
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

// migrate 执行数据库迁移（使用GORM AutoMigrate）
func (s *Store) migrate() error {
	return s.gormDB.AutoMigrate(
		&domain.Domain{},
		&domain.MailboxUser{},
		&domain.Message{},
		&domain.Credential{},
	)
}

// ========== Domain Repository ==========

// SaveDomain 保存新域名，名称冲突时返回 ErrDomainExists。
func (s *Store) SaveDomain(d *domain.Domain) error {
	err := s.gormDB.Create(d).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrDomainExists
	}
	return err
}

// GetDomain 根据 ID 获取域名。
func (s *Store) GetDomain(id string) (*domain.Domain, error) {
	var d domain.Domain
	err := s.gormDB.First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDomainByName 根据域名名称获取域名。
func (s *Store) GetDomainByName(name string) (*domain.Domain, error) {
	var d domain.Domain
	err := s.gormDB.First(&d, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDomains 列出所有域名，按创建时间降序。
func (s *Store) ListDomains() ([]domain.Domain, error) {
	var out []domain.Domain
	err := s.gormDB.Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListVerifiedDomains 列出所有已验证的域名。
func (s *Store) ListVerifiedDomains() ([]domain.Domain, error) {
	var out []domain.Domain
	err := s.gormDB.Where("verified = ?", true).Order("name ASC").Find(&out).Error
	return out, err
}

// ListDomainsByStatus 按验证状态列出域名。
func (s *Store) ListDomainsByStatus(status domain.DomainStatus) ([]domain.Domain, error) {
	var out []domain.Domain
	err := s.gormDB.Where("status = ?", status).Order("created_at DESC").Find(&out).Error
	return out, err
}

// UpdateDomain 更新已存在的域名。
func (s *Store) UpdateDomain(d *domain.Domain) error {
	// 结构体更新配合 Select 写入零值字段，同时让 JSON 序列化器生效
	result := s.gormDB.Model(&domain.Domain{ID: d.ID}).
		Select("name", "status", "verified", "active", "verification_token",
			"server_ip", "dns_records", "verified_at", "last_check_at", "check_attempts").
		Updates(d)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return storage.ErrDomainExists
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrDomainNotFound
	}
	return nil
}

// DeleteDomain 删除域名。
func (s *Store) DeleteDomain(id string) error {
	result := s.gormDB.Delete(&domain.Domain{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrDomainNotFound
	}
	return nil
}

// ========== MailboxUser Repository ==========

// CreateMailboxUser 创建邮箱用户。
// 依赖 email 列的唯一索引做原子占用，冲突时返回 ErrEmailExists。
func (s *Store) CreateMailboxUser(user *domain.MailboxUser) error {
	err := s.gormDB.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrEmailExists
	}
	return err
}

// GetMailboxUser 根据 ID 获取邮箱用户。
func (s *Store) GetMailboxUser(id string) (*domain.MailboxUser, error) {
	var u domain.MailboxUser
	err := s.gormDB.First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetMailboxUserByEmail 根据邮件地址获取邮箱用户。
func (s *Store) GetMailboxUserByEmail(email string) (*domain.MailboxUser, error) {
	var u domain.MailboxUser
	err := s.gormDB.First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListMailboxUsers 列出所有邮箱用户，按创建时间降序。
func (s *Store) ListMailboxUsers() ([]domain.MailboxUser, error) {
	var out []domain.MailboxUser
	err := s.gormDB.Order("created_at DESC").Find(&out).Error
	return out, err
}

// ListMailboxUsersByDomainID 列出指定域名下的邮箱用户。
func (s *Store) ListMailboxUsersByDomainID(domainID string) ([]domain.MailboxUser, error) {
	var out []domain.MailboxUser
	err := s.gormDB.Where("domain_id = ?", domainID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// CountMailboxUsersByDomainID 统计指定域名下的用户数量。
func (s *Store) CountMailboxUsersByDomainID(domainID string) (int, error) {
	var count int64
	err := s.gormDB.Model(&domain.MailboxUser{}).Where("domain_id = ?", domainID).Count(&count).Error
	return int(count), err
}

// UpdateMailboxUser 更新邮箱用户。Email 不参与更新。
func (s *Store) UpdateMailboxUser(user *domain.MailboxUser) error {
	result := s.gormDB.Model(&domain.MailboxUser{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"full_name":      user.FullName,
		"role":           user.Role,
		"active":         user.Active,
		"credential_uid": user.CredentialUID,
		"updated_at":     time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 更新用户最后登录时间。
func (s *Store) UpdateLastLogin(userID string) error {
	now := time.Now().UTC()
	result := s.gormDB.Model(&domain.MailboxUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_login_at": now,
		"updated_at":    now,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// DeleteMailboxUser 删除邮箱用户。
func (s *Store) DeleteMailboxUser(id string) error {
	result := s.gormDB.Delete(&domain.MailboxUser{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// ========== Message Repository ==========

// SaveMessage 保存邮件。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.gormDB.Create(message).Error
}

// GetMessage 根据 ID 获取邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	var m domain.Message
	err := s.gormDB.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListInbox 列出发给指定地址的邮件，按时间降序。
func (s *Store) ListInbox(address string) ([]domain.Message, error) {
	var out []domain.Message
	err := s.gormDB.Where("to_addr = ?", address).Order("timestamp DESC").Find(&out).Error
	return out, err
}

// ListSent 列出指定地址发出的邮件，按时间降序。
func (s *Store) ListSent(address string) ([]domain.Message, error) {
	var out []domain.Message
	err := s.gormDB.Where("from_addr = ?", address).Order("timestamp DESC").Find(&out).Error
	return out, err
}

// CountUnread 统计指定地址的未读邮件数。
func (s *Store) CountUnread(address string) (int, error) {
	var count int64
	err := s.gormDB.Model(&domain.Message{}).Where("to_addr = ? AND is_read = ?", address, false).Count(&count).Error
	return int(count), err
}

// MarkMessageRead 将邮件标记为已读。已读邮件重复标记不报错。
func (s *Store) MarkMessageRead(id string) error {
	result := s.gormDB.Model(&domain.Message{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 区分"不存在"和"已经是已读"
		var count int64
		if err := s.gormDB.Model(&domain.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return storage.ErrMessageNotFound
		}
	}
	return nil
}

// ========== Credential Repository ==========

// CreateCredential 创建登录凭证，Email 冲突时返回 ErrCredentialExists。
func (s *Store) CreateCredential(cred *domain.Credential) error {
	err := s.gormDB.Create(cred).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrCredentialExists
	}
	return err
}

// GetCredentialByUID 根据 UID 获取凭证。
func (s *Store) GetCredentialByUID(uid string) (*domain.Credential, error) {
	var c domain.Credential
	err := s.gormDB.First(&c, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCredentialByEmail 根据邮件地址获取凭证。
func (s *Store) GetCredentialByEmail(email string) (*domain.Credential, error) {
	var c domain.Credential
	err := s.gormDB.First(&c, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCredential 删除凭证。
func (s *Store) DeleteCredential(uid string) error {
	result := s.gormDB.Delete(&domain.Credential{}, "uid = ?", uid)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrCredentialNotFound
	}
	return nil
}
