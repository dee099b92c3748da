package repository

import (
	"time"

	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
)

type ConversationRepository interface {
	GetByUuid(uuid string) (*conversationEntity.Conversation, error)
	// GetActiveByCustomerID 查找顾客当前的活跃会话
	GetActiveByCustomerID(customerID string) (*conversationEntity.Conversation, error)
	Create(conv *conversationEntity.Conversation) error
	// UpdateLastMessage 更新预览并给另一侧的未读数 +1。
	// bumpStaff 为 true 时累加员工侧，否则累加顾客侧。
	UpdateLastMessage(uuid string, preview string, at time.Time, bumpStaff bool) error
	ResetUnread(uuid string, staffSide bool) error
}
