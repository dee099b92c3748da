package entity

import (
	"time"

	"gorm.io/gorm"
)

// 通知类型
const (
	TypeCommentReply  = "comment_reply"
	TypeOrderUpdate   = "order_update"
	TypeProductReview = "product_review"
	TypeSystem        = "system"
)

// 通知面向的角色视图
const (
	AudienceCustomer = "customer"
	AudienceStaff    = "staff"
)

// ActorSystem 系统触发的通知 actor 固定值
const ActorSystem = "system"

// Notification 通知表。删除走 gorm 软删除：一旦删除，任何查询都不会再返回。
// 隐藏（is_hidden）只是从默认视图移除，数据仍在。
type Notification struct {
	Id          int64          `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid        string         `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:通知uuid"`
	RecipientId string         `gorm:"column:recipient_id;index;type:char(20);not null;comment:接收者ID"`
	Audience    string         `gorm:"column:audience;index;type:varchar(16);not null;default:customer;comment:角色视图：customer/staff"`
	Actor       string         `gorm:"column:actor;type:char(20);comment:触发者ID，系统触发为 system"`
	Type        string         `gorm:"column:type;index;type:varchar(32);not null;comment:类型：comment_reply/order_update/product_review/system"`
	Title       string         `gorm:"column:title;type:varchar(255);comment:标题"`
	Message     string         `gorm:"column:message;type:varchar(1024);comment:正文"`
	Link        string         `gorm:"column:link;type:varchar(512);comment:跳转链接"`
	RefId       string         `gorm:"column:ref_id;type:char(36);comment:关联对象ID"`
	RefType     string         `gorm:"column:ref_type;type:varchar(32);comment:关联对象类型"`
	IsRead      bool           `gorm:"column:is_read;not null;default:0;comment:已读标记"`
	IsHidden    bool           `gorm:"column:is_hidden;not null;default:0;comment:隐藏标记"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;comment:创建时间"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;comment:更新时间"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index;comment:删除时间"`
}

func (Notification) TableName() string {
	return "notification"
}
