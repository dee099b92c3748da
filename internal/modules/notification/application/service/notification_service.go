package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	notificationRequest "ShopPulse/internal/modules/notification/application/dto/request"
	notificationRespond "ShopPulse/internal/modules/notification/application/dto/respond"
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
	notificationRepository "ShopPulse/internal/modules/notification/domain/repository"
	"ShopPulse/internal/modules/notification/infrastructure/mq"
	"ShopPulse/pkg/redis"
	"ShopPulse/pkg/ws"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"gorm.io/gorm"
)

const unreadCacheTTL = 60 * time.Second

type NotificationService interface {
	List(recipientID string, audience string, req notificationRequest.ListNotificationsRequest) (*notificationRespond.ListNotificationsRespond, error)
	UnreadCount(recipientID string, audience string) (*notificationRespond.UnreadCountRespond, error)
	MarkRead(uuid string, recipientID string, audience string) error
	MarkAllRead(recipientID string, audience string) (*notificationRespond.MarkAllReadRespond, error)
	Hide(uuid string, recipientID string) error
	Delete(uuid string, recipientID string, audience string) error
	DeleteAll(recipientID string, audience string) error
	// CreateAndPush 落库后按通知类型选择推送事件；meta 仅订单类事件需要
	CreateAndPush(n *notificationEntity.Notification, meta *notificationRespond.OrderMetadata) error
}

type notificationServiceImpl struct {
	repo       notificationRepository.NotificationRepository
	hub        *ws.Hub
	audit      mq.Publisher
	auditTopic string
}

func NewNotificationService(repo notificationRepository.NotificationRepository, hub *ws.Hub, audit mq.Publisher, auditTopic string) NotificationService {
	return &notificationServiceImpl{
		repo:       repo,
		hub:        hub,
		audit:      audit,
		auditTopic: auditTopic,
	}
}

func (s *notificationServiceImpl) List(recipientID string, audience string, req notificationRequest.ListNotificationsRequest) (*notificationRespond.ListNotificationsRespond, error) {
	if recipientID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	page := req.Page
	limit := req.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	filter := notificationRepository.ListFilter{
		Type:       req.Type,
		IsRead:     req.IsRead,
		UnreadOnly: req.UnreadOnly,
	}

	items, total, err := s.repo.List(recipientID, audience, filter, page, limit)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	unread, err := s.countUnread(recipientID, audience)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	out := make([]notificationRespond.NotificationItem, 0, len(items))
	for i := range items {
		out = append(out, toItem(&items[i]))
	}

	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}

	return &notificationRespond.ListNotificationsRespond{
		Notifications: out,
		Total:         total,
		Page:          page,
		Limit:         limit,
		TotalPages:    totalPages,
		UnreadCount:   unread,
	}, nil
}

func (s *notificationServiceImpl) UnreadCount(recipientID string, audience string) (*notificationRespond.UnreadCountRespond, error) {
	if recipientID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	count, err := s.countUnread(recipientID, audience)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	return &notificationRespond.UnreadCountRespond{UnreadCount: count}, nil
}

func (s *notificationServiceImpl) MarkRead(uuid string, recipientID string, audience string) error {
	if uuid == "" || recipientID == "" {
		return xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	rows, err := s.repo.MarkRead(uuid, recipientID)
	if err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if rows == 0 {
		// 不存在、已删除或本来就是已读
		if _, err := s.repo.GetByUuid(uuid); errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.ErrNotificationNotFound
		}
		return nil
	}
	s.invalidateAndPushUnread(recipientID, audience)
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(recipientID string, audience string) (*notificationRespond.MarkAllReadRespond, error) {
	if recipientID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	rows, err := s.repo.MarkAllRead(recipientID, audience)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	s.invalidateAndPushUnread(recipientID, audience)
	return &notificationRespond.MarkAllReadRespond{
		Message:       "所有通知已标记为已读",
		ModifiedCount: rows,
	}, nil
}

func (s *notificationServiceImpl) Hide(uuid string, recipientID string) error {
	if uuid == "" || recipientID == "" {
		return xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	rows, err := s.repo.Hide(uuid, recipientID)
	if err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if rows == 0 {
		if _, err := s.repo.GetByUuid(uuid); errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.ErrNotificationNotFound
		}
	}
	return nil
}

func (s *notificationServiceImpl) Delete(uuid string, recipientID string, audience string) error {
	if uuid == "" || recipientID == "" {
		return xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	rows, err := s.repo.Delete(uuid, recipientID)
	if err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if rows == 0 {
		return xerr.ErrNotificationNotFound
	}
	s.invalidateAndPushUnread(recipientID, audience)
	return nil
}

func (s *notificationServiceImpl) DeleteAll(recipientID string, audience string) error {
	if recipientID == "" {
		return xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	if _, err := s.repo.DeleteAll(recipientID, audience); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	s.invalidateAndPushUnread(recipientID, audience)
	return nil
}

func (s *notificationServiceImpl) CreateAndPush(n *notificationEntity.Notification, meta *notificationRespond.OrderMetadata) error {
	if n == nil || n.RecipientId == "" {
		return xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	if n.Audience == "" {
		n.Audience = notificationEntity.AudienceCustomer
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.repo.Create(n); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}

	s.publishAudit(n)

	switch {
	case n.Audience == notificationEntity.AudienceStaff && n.Type == notificationEntity.TypeOrderUpdate && meta != nil:
		_ = s.hub.SendEvent(n.RecipientId, notificationRespond.EventStaffNewOrder, notificationRespond.StaffNewOrderPush{
			NotificationId: n.Uuid,
			Title:          n.Title,
			Message:        n.Message,
			Actor:          n.Actor,
			Metadata:       *meta,
		})
	case n.Type == notificationEntity.TypeCommentReply:
		_ = s.hub.SendEvent(n.RecipientId, notificationRespond.EventCommentReply, notificationRespond.NotificationPush{
			NotificationId: n.Uuid,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			Link:           n.Link,
			Actor:          n.Actor,
		})
	case n.Type == notificationEntity.TypeOrderUpdate && meta != nil:
		_ = s.hub.SendEvent(n.RecipientId, notificationRespond.EventOrderStatus, notificationRespond.OrderStatusPush{
			OrderId: meta.OrderId,
			Status:  meta.Status,
			Title:   n.Title,
			Message: n.Message,
		})
	default:
		_ = s.hub.SendEvent(n.RecipientId, notificationRespond.EventNotificationNew, notificationRespond.NotificationPush{
			NotificationId: n.Uuid,
			Type:           n.Type,
			Title:          n.Title,
			Message:        n.Message,
			Link:           n.Link,
			Actor:          n.Actor,
		})
	}

	s.invalidateAndPushUnread(n.RecipientId, n.Audience)
	return nil
}

// countUnread 优先读缓存，未命中时回源并写缓存
func (s *notificationServiceImpl) countUnread(recipientID string, audience string) (int64, error) {
	key := unreadCacheKey(recipientID, audience)
	if redis.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if v, err := redis.Get(ctx, key); err == nil {
			if count, err := strconv.ParseInt(v, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.repo.CountUnread(recipientID, audience)
	if err != nil {
		return 0, err
	}

	if redis.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = redis.Set(ctx, key, count, unreadCacheTTL)
	}
	return count, nil
}

// invalidateAndPushUnread 使缓存失效，并把最新未读数推给该用户的其它在线端
func (s *notificationServiceImpl) invalidateAndPushUnread(recipientID string, audience string) {
	if redis.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = redis.Del(ctx, unreadCacheKey(recipientID, audience))
	}

	count, err := s.countUnread(recipientID, audience)
	if err != nil {
		zlog.Error(err.Error())
		return
	}
	_ = s.hub.SendEvent(recipientID, notificationRespond.EventUnreadCount, notificationRespond.UnreadCountPush{Count: count})
}

func (s *notificationServiceImpl) publishAudit(n *notificationEntity.Notification) {
	if s.audit == nil || s.auditTopic == "" {
		return
	}
	msg, err := mq.NewEventMessage(s.auditTopic, n.RecipientId, map[string]string{
		"notification_id": n.Uuid,
		"recipient_id":    n.RecipientId,
		"audience":        n.Audience,
		"type":            n.Type,
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.audit.Publish(ctx, msg); err != nil {
		zlog.Warn(fmt.Sprintf("审计消息发送失败: %v", err))
	}
}

func unreadCacheKey(recipientID string, audience string) string {
	return "notif:unread:" + audience + ":" + recipientID
}

func toItem(n *notificationEntity.Notification) notificationRespond.NotificationItem {
	return notificationRespond.NotificationItem{
		NotificationId: n.Uuid,
		RecipientId:    n.RecipientId,
		Actor:          n.Actor,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
		RefId:          n.RefId,
		RefType:        n.RefType,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
}
