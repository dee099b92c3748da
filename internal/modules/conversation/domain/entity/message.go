package entity

import (
	"time"
)

// 消息发送方类型
const (
	SenderUser   = "USER"
	SenderStaff  = "STAFF"
	SenderSystem = "SYSTEM"
	SenderAI     = "AI"
)

// 附件类型
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

// Attachment 消息附件，整体以 json 存储在消息行内
type Attachment struct {
	Url  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// Message 会话消息表，只增不改。约束：content 与 attachments 不会同时为空。
type Message struct {
	Id             int64        `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid           string       `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:消息uuid"`
	ConversationId string       `gorm:"column:conversation_id;index;type:char(20);not null;comment:会话uuid"`
	SenderType     string       `gorm:"column:sender_type;type:varchar(8);not null;comment:发送方：USER/STAFF/SYSTEM/AI"`
	SenderId       string       `gorm:"column:sender_id;type:char(20);comment:发送者ID"`
	Content        string       `gorm:"column:content;type:varchar(2048);comment:文本内容"`
	Attachments    []Attachment `gorm:"column:attachments;serializer:json;type:json;comment:附件列表"`
	IsRead         bool         `gorm:"column:is_read;not null;default:0;comment:已读标记"`
	CreatedAt      time.Time    `gorm:"column:created_at;index;not null;comment:创建时间"`
}

func (Message) TableName() string {
	return "message"
}
