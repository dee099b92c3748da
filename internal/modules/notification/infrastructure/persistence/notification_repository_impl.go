package persistence

import (
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
	notificationRepository "ShopPulse/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notificationRepository.NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(n *notificationEntity.Notification) error {
	return r.db.Create(n).Error
}

func (r *notificationRepositoryImpl) GetByUuid(uuid string) (*notificationEntity.Notification, error) {
	var n notificationEntity.Notification
	if err := r.db.Where("uuid = ?", uuid).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepositoryImpl) scope(recipientID string, audience string) *gorm.DB {
	return r.db.Model(&notificationEntity.Notification{}).
		Where("recipient_id = ? AND audience = ?", recipientID, audience)
}

func (r *notificationRepositoryImpl) List(recipientID string, audience string, filter notificationRepository.ListFilter, page int, pageSize int) ([]notificationEntity.Notification, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := r.scope(recipientID, audience).Where("is_hidden = ?", false)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.IsRead != nil {
		q = q.Where("is_read = ?", *filter.IsRead)
	}
	if filter.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []notificationEntity.Notification
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepositoryImpl) CountUnread(recipientID string, audience string) (int64, error) {
	var count int64
	err := r.scope(recipientID, audience).
		Where("is_read = ? AND is_hidden = ?", false, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *notificationRepositoryImpl) MarkRead(uuid string, recipientID string) (int64, error) {
	res := r.db.Model(&notificationEntity.Notification{}).
		Where("uuid = ? AND recipient_id = ? AND is_read = ?", uuid, recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) MarkAllRead(recipientID string, audience string) (int64, error) {
	res := r.scope(recipientID, audience).
		Where("is_read = ?", false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) Hide(uuid string, recipientID string) (int64, error) {
	res := r.db.Model(&notificationEntity.Notification{}).
		Where("uuid = ? AND recipient_id = ? AND is_hidden = ?", uuid, recipientID, false).
		Update("is_hidden", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) Delete(uuid string, recipientID string) (int64, error) {
	res := r.db.Where("uuid = ? AND recipient_id = ?", uuid, recipientID).
		Delete(&notificationEntity.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepositoryImpl) DeleteAll(recipientID string, audience string) (int64, error) {
	res := r.db.Where("recipient_id = ? AND audience = ?", recipientID, audience).
		Delete(&notificationEntity.Notification{})
	return res.RowsAffected, res.Error
}
