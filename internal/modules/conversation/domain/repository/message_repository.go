package repository

import (
	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
)

type MessageRepository interface {
	Create(message *conversationEntity.Message) error
	// ListByConversation 按创建时间倒序分页
	ListByConversation(conversationID string, page int, pageSize int) ([]conversationEntity.Message, error)
}
