package domain

import "time"

// DomainStatus 域名验证状态
type DomainStatus string

const (
	// DomainStatusPending 待验证
	DomainStatusPending DomainStatus = "pending"
	// DomainStatusChecking 验证中（后台检查 DNS 记录）
	DomainStatusChecking DomainStatus = "checking"
	// DomainStatusVerified 已验证
	DomainStatusVerified DomainStatus = "verified"
	// DomainStatusFailed 验证失败（可重新发起验证）
	DomainStatusFailed DomainStatus = "failed"
)

// Domain 表示一个收发邮件的域名。
//
// DNSRecords 是创建时根据域名和服务器 IP 派生的只读快照，
// 前端展示和 DNS 验证都依赖其精确值。
type Domain struct {
	ID                string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name              string       `json:"name" gorm:"uniqueIndex;type:varchar(253);not null"`
	Status            DomainStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Verified          bool         `json:"verified" gorm:"default:false;index"`
	Active            bool         `json:"active" gorm:"default:false"`
	VerificationToken string       `json:"verificationToken" gorm:"type:varchar(255)"`
	ServerIP          string       `json:"serverIp" gorm:"type:varchar(45)"`
	DNSRecords        DNSRecordSet `json:"dnsRecords" gorm:"serializer:json;type:json"`
	CreatedBy         string       `json:"createdBy" gorm:"type:varchar(36)"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`
	VerifiedAt        *time.Time   `json:"verifiedAt,omitempty"`
	LastCheckAt       *time.Time   `json:"lastCheckAt,omitempty"`
	CheckAttempts     int          `json:"checkAttempts" gorm:"default:0"`
}

// CanSend 判断域名是否允许收发邮件
func (d *Domain) CanSend() bool {
	return d.Verified && d.Active
}
