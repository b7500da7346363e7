package domain

import "time"

// Message 表示一封邮件。
//
// 除 Read 外全部字段创建后不可变；Read 只会从 false 翻转为 true 一次。
// 附件只保留文件名，附件内容属于外部对象存储，不在本实体范围内。
type Message struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	From            string    `json:"from" gorm:"column:from_addr;type:varchar(255);index"`
	To              string    `json:"to" gorm:"column:to_addr;type:varchar(255);index"`
	Subject         string    `json:"subject" gorm:"type:varchar(500)"`
	Content         string    `json:"content" gorm:"type:text"`
	AttachmentNames []string  `json:"attachmentNames" gorm:"serializer:json;type:json"`
	Timestamp       time.Time `json:"timestamp" gorm:"index"`
	Read            bool      `json:"read" gorm:"column:is_read;default:false"`
}
