package repository

import (
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
)

// ListFilter 列表查询条件，零值表示不过滤
type ListFilter struct {
	Type       string
	IsRead     *bool
	UnreadOnly bool
}

type NotificationRepository interface {
	Create(n *notificationEntity.Notification) error
	GetByUuid(uuid string) (*notificationEntity.Notification, error)
	// List 按创建时间倒序分页，默认视图排除隐藏项，返回记录与总数
	List(recipientID string, audience string, filter ListFilter, page int, pageSize int) ([]notificationEntity.Notification, int64, error)
	CountUnread(recipientID string, audience string) (int64, error)
	// MarkRead 返回实际翻转的行数（0 表示不存在或已读）
	MarkRead(uuid string, recipientID string) (int64, error)
	MarkAllRead(recipientID string, audience string) (int64, error)
	Hide(uuid string, recipientID string) (int64, error)
	Delete(uuid string, recipientID string) (int64, error)
	DeleteAll(recipientID string, audience string) (int64, error)
}
