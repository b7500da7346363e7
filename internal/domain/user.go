package domain

import "time"

// UserRole 邮箱用户角色
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// MailboxUser 表示一个可收发邮件的身份 username@domain。
//
// Email 由 Username 和所属 Domain.Name 派生，创建后不可单独修改；
// 全局唯一性由存储层的唯一索引保证。
type MailboxUser struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName      string     `json:"fullName" gorm:"type:varchar(255)"`
	Username      string     `json:"username" gorm:"type:varchar(100);not null"`
	DomainID      string     `json:"domainId" gorm:"type:varchar(36);index;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Role          UserRole   `json:"role" gorm:"type:varchar(20);default:'user';index"`
	Active        bool       `json:"active" gorm:"default:true"`
	CredentialUID string     `json:"-" gorm:"type:varchar(36)"` // 外部凭证系统的标识，不返回给前端
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

// IsAdmin 判断用户是否为管理员
func (u *MailboxUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}
