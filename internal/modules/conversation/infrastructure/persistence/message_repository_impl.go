package persistence

import (
	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	conversationRepository "ShopPulse/internal/modules/conversation/domain/repository"

	"gorm.io/gorm"
)

type messageRepositoryImpl struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) conversationRepository.MessageRepository {
	return &messageRepositoryImpl{db: db}
}

func (r *messageRepositoryImpl) Create(message *conversationEntity.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepositoryImpl) ListByConversation(conversationID string, page int, pageSize int) ([]conversationEntity.Message, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	var msgs []conversationEntity.Message
	err := r.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
