package domain

import "time"

// Credential 外部凭证系统中的一条登录凭证。
//
// 与 MailboxUser 分属两个系统：先建凭证、再建目录记录，
// 目录写入失败时必须删除凭证做补偿，避免凭证孤儿。
type Credential struct {
	UID          string    `json:"uid" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
