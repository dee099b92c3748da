package event

import (
	"context"
	"encoding/json"
	"fmt"

	notificationRespond "ShopPulse/internal/modules/notification/application/dto/respond"
	notificationService "ShopPulse/internal/modules/notification/application/service"
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
	"ShopPulse/internal/modules/notification/infrastructure/mq"
	"ShopPulse/pkg/util"
	"ShopPulse/pkg/zlog"
)

// 上游业务事件主题。评论、订单、评价服务把领域事件投到这些主题，
// 本模块消费后生成通知并推送。
const (
	TopicCommentReplied = "shop.comment.replied"
	TopicOrderStatus    = "shop.order.status"
	TopicOrderCreated   = "shop.order.created"
	TopicReviewCreated  = "shop.review.created"
	TopicSystem         = "shop.system"
)

type CommentRepliedEvent struct {
	RecipientId string `json:"recipient_id"`
	ActorId     string `json:"actor_id"`
	CommentId   string `json:"comment_id"`
	ProductId   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Preview     string `json:"preview"`
}

type OrderStatusEvent struct {
	OrderId    string `json:"order_id"`
	CustomerId string `json:"customer_id"`
	Status     string `json:"status"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

type OrderCreatedEvent struct {
	OrderId      string   `json:"order_id"`
	CustomerId   string   `json:"customer_id"`
	CustomerName string   `json:"customer_name"`
	StaffIds     []string `json:"staff_ids"`
}

type ReviewCreatedEvent struct {
	ProductId   string   `json:"product_id"`
	ProductName string   `json:"product_name"`
	ActorId     string   `json:"actor_id"`
	Rating      int      `json:"rating"`
	StaffIds    []string `json:"staff_ids"`
}

type SystemEvent struct {
	RecipientId string `json:"recipient_id"`
	Audience    string `json:"audience"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Link        string `json:"link"`
}

// NotificationEventHandler 消费上游业务事件，生成通知。
// 解析失败的消息记录日志后跳过，返回 nil 以免阻塞整个分区。
type NotificationEventHandler struct {
	svc notificationService.NotificationService
}

func NewNotificationEventHandler(svc notificationService.NotificationService) *NotificationEventHandler {
	return &NotificationEventHandler{svc: svc}
}

func (h *NotificationEventHandler) Handle(ctx context.Context, msg mq.Message) error {
	switch msg.Topic {
	case TopicCommentReplied:
		return h.onCommentReplied(msg.Value)
	case TopicOrderStatus:
		return h.onOrderStatus(msg.Value)
	case TopicOrderCreated:
		return h.onOrderCreated(msg.Value)
	case TopicReviewCreated:
		return h.onReviewCreated(msg.Value)
	case TopicSystem:
		return h.onSystem(msg.Value)
	default:
		zlog.Warn(fmt.Sprintf("未知事件主题: %s", msg.Topic))
		return nil
	}
}

func (h *NotificationEventHandler) onCommentReplied(value []byte) error {
	var ev CommentRepliedEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.RecipientId == "" {
		zlog.Warn(fmt.Sprintf("comment.replied 事件解析失败: %v", err))
		return nil
	}

	n := &notificationEntity.Notification{
		Uuid:        util.GenerateNotificationID(),
		RecipientId: ev.RecipientId,
		Audience:    notificationEntity.AudienceCustomer,
		Actor:       ev.ActorId,
		Type:        notificationEntity.TypeCommentReply,
		Title:       "你的评论收到了新回复",
		Message:     ev.Preview,
		Link:        fmt.Sprintf("/products/%s#comment-%s", ev.ProductId, ev.CommentId),
		RefId:       ev.CommentId,
		RefType:     "comment",
	}
	return h.svc.CreateAndPush(n, nil)
}

func (h *NotificationEventHandler) onOrderStatus(value []byte) error {
	var ev OrderStatusEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.CustomerId == "" || ev.OrderId == "" {
		zlog.Warn(fmt.Sprintf("order.status 事件解析失败: %v", err))
		return nil
	}

	title := ev.Title
	if title == "" {
		title = "订单状态更新"
	}
	message := ev.Message
	if message == "" {
		message = fmt.Sprintf("订单 %s 的状态变更为 %s", ev.OrderId, ev.Status)
	}

	n := &notificationEntity.Notification{
		Uuid:        util.GenerateNotificationID(),
		RecipientId: ev.CustomerId,
		Audience:    notificationEntity.AudienceCustomer,
		Actor:       notificationEntity.ActorSystem,
		Type:        notificationEntity.TypeOrderUpdate,
		Title:       title,
		Message:     message,
		Link:        fmt.Sprintf("/orders/%s", ev.OrderId),
		RefId:       ev.OrderId,
		RefType:     "order",
	}
	return h.svc.CreateAndPush(n, &notificationRespond.OrderMetadata{
		OrderId: ev.OrderId,
		Status:  ev.Status,
	})
}

func (h *NotificationEventHandler) onOrderCreated(value []byte) error {
	var ev OrderCreatedEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.OrderId == "" || len(ev.StaffIds) == 0 {
		zlog.Warn(fmt.Sprintf("order.created 事件解析失败: %v", err))
		return nil
	}

	for _, staffID := range ev.StaffIds {
		n := &notificationEntity.Notification{
			Uuid:        util.GenerateNotificationID(),
			RecipientId: staffID,
			Audience:    notificationEntity.AudienceStaff,
			Actor:       ev.CustomerId,
			Type:        notificationEntity.TypeOrderUpdate,
			Title:       "新订单",
			Message:     fmt.Sprintf("%s 提交了新订单 %s", ev.CustomerName, ev.OrderId),
			Link:        fmt.Sprintf("/admin/orders/%s", ev.OrderId),
			RefId:       ev.OrderId,
			RefType:     "order",
		}
		if err := h.svc.CreateAndPush(n, &notificationRespond.OrderMetadata{
			OrderId:      ev.OrderId,
			CustomerName: ev.CustomerName,
		}); err != nil {
			zlog.Error(err.Error())
		}
	}
	return nil
}

func (h *NotificationEventHandler) onReviewCreated(value []byte) error {
	var ev ReviewCreatedEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.ProductId == "" || len(ev.StaffIds) == 0 {
		zlog.Warn(fmt.Sprintf("review.created 事件解析失败: %v", err))
		return nil
	}

	for _, staffID := range ev.StaffIds {
		n := &notificationEntity.Notification{
			Uuid:        util.GenerateNotificationID(),
			RecipientId: staffID,
			Audience:    notificationEntity.AudienceStaff,
			Actor:       ev.ActorId,
			Type:        notificationEntity.TypeProductReview,
			Title:       "商品收到新评价",
			Message:     fmt.Sprintf("%s 收到 %d 星评价", ev.ProductName, ev.Rating),
			Link:        fmt.Sprintf("/admin/products/%s/reviews", ev.ProductId),
			RefId:       ev.ProductId,
			RefType:     "product",
		}
		if err := h.svc.CreateAndPush(n, nil); err != nil {
			zlog.Error(err.Error())
		}
	}
	return nil
}

func (h *NotificationEventHandler) onSystem(value []byte) error {
	var ev SystemEvent
	if err := json.Unmarshal(value, &ev); err != nil || ev.RecipientId == "" {
		zlog.Warn(fmt.Sprintf("system 事件解析失败: %v", err))
		return nil
	}

	audience := ev.Audience
	if audience == "" {
		audience = notificationEntity.AudienceCustomer
	}

	n := &notificationEntity.Notification{
		Uuid:        util.GenerateNotificationID(),
		RecipientId: ev.RecipientId,
		Audience:    audience,
		Actor:       notificationEntity.ActorSystem,
		Type:        notificationEntity.TypeSystem,
		Title:       ev.Title,
		Message:     ev.Message,
		Link:        ev.Link,
	}
	return h.svc.CreateAndPush(n, nil)
}
