package persistence

import (
	"database/sql"
	"time"

	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	conversationRepository "ShopPulse/internal/modules/conversation/domain/repository"

	"gorm.io/gorm"
)

type conversationRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) conversationRepository.ConversationRepository {
	return &conversationRepositoryImpl{db: db}
}

func (r *conversationRepositoryImpl) GetByUuid(uuid string) (*conversationEntity.Conversation, error) {
	var conv conversationEntity.Conversation
	if err := r.db.Where("uuid = ?", uuid).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepositoryImpl) GetActiveByCustomerID(customerID string) (*conversationEntity.Conversation, error) {
	var conv conversationEntity.Conversation
	err := r.db.
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Order("created_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepositoryImpl) Create(conv *conversationEntity.Conversation) error {
	return r.db.Create(conv).Error
}

func (r *conversationRepositoryImpl) UpdateLastMessage(uuid string, preview string, at time.Time, bumpStaff bool) error {
	unreadColumn := "customer_unread"
	if bumpStaff {
		unreadColumn = "staff_unread"
	}
	return r.db.Model(&conversationEntity.Conversation{}).
		Where("uuid = ?", uuid).
		Updates(map[string]interface{}{
			"last_message":    preview,
			"last_message_at": sql.NullTime{Time: at, Valid: true},
			unreadColumn:      gorm.Expr(unreadColumn+" + ?", 1),
		}).Error
}

func (r *conversationRepositoryImpl) ResetUnread(uuid string, staffSide bool) error {
	column := "customer_unread"
	if staffSide {
		column = "staff_unread"
	}
	return r.db.Model(&conversationEntity.Conversation{}).
		Where("uuid = ?", uuid).
		Update(column, 0).Error
}
