package entity

import (
	"database/sql"
	"time"
)

// 会话状态
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Conversation 客服会话表。每个顾客至多一条活跃会话，创建是幂等的。
type Conversation struct {
	Id             int64        `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid           string       `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:会话uuid"`
	CustomerId     string       `gorm:"column:customer_id;index;type:char(20);not null;comment:顾客ID"`
	State          string       `gorm:"column:state;type:varchar(16);not null;default:open;comment:状态：open/closed"`
	LastMessage    string       `gorm:"column:last_message;type:varchar(512);comment:最近一条消息预览"`
	LastMessageAt  sql.NullTime `gorm:"column:last_message_at;comment:最近消息时间"`
	IsActive       bool         `gorm:"column:is_active;not null;default:1;comment:活跃标记"`
	CustomerUnread int          `gorm:"column:customer_unread;not null;default:0;comment:顾客侧未读数"`
	StaffUnread    int          `gorm:"column:staff_unread;not null;default:0;comment:员工侧未读数"`
	CreatedAt      time.Time    `gorm:"column:created_at;not null;comment:创建时间"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;comment:更新时间"`
}

func (Conversation) TableName() string {
	return "conversation"
}
