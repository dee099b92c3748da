package event

import (
	"context"
	"testing"

	notificationRequest "ShopPulse/internal/modules/notification/application/dto/request"
	notificationRespond "ShopPulse/internal/modules/notification/application/dto/respond"
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
	"ShopPulse/internal/modules/notification/infrastructure/mq"
)

// fakeNotificationService 只记录 CreateAndPush 调用
type fakeNotificationService struct {
	created []*notificationEntity.Notification
	metas   []*notificationRespond.OrderMetadata
}

func (f *fakeNotificationService) List(string, string, notificationRequest.ListNotificationsRequest) (*notificationRespond.ListNotificationsRespond, error) {
	return nil, nil
}
func (f *fakeNotificationService) UnreadCount(string, string) (*notificationRespond.UnreadCountRespond, error) {
	return nil, nil
}
func (f *fakeNotificationService) MarkRead(string, string, string) error { return nil }
func (f *fakeNotificationService) MarkAllRead(string, string) (*notificationRespond.MarkAllReadRespond, error) {
	return nil, nil
}
func (f *fakeNotificationService) Hide(string, string) error              { return nil }
func (f *fakeNotificationService) Delete(string, string, string) error    { return nil }
func (f *fakeNotificationService) DeleteAll(string, string) error         { return nil }
func (f *fakeNotificationService) CreateAndPush(n *notificationEntity.Notification, meta *notificationRespond.OrderMetadata) error {
	f.created = append(f.created, n)
	f.metas = append(f.metas, meta)
	return nil
}

func TestCommentRepliedCreatesCustomerNotification(t *testing.T) {
	svc := &fakeNotificationService{}
	h := NewNotificationEventHandler(svc)

	err := h.Handle(context.Background(), mq.Message{
		Topic: TopicCommentReplied,
		Value: []byte(`{"recipient_id":"u1","actor_id":"u2","comment_id":"c9","product_id":"p1","preview":"说得好"}`),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(svc.created) != 1 {
		t.Fatalf("期望生成 1 条通知，得到 %d", len(svc.created))
	}
	n := svc.created[0]
	if n.Type != notificationEntity.TypeCommentReply || n.Audience != notificationEntity.AudienceCustomer {
		t.Fatalf("通知类型或受众错误: %+v", n)
	}
	if n.RecipientId != "u1" || n.Actor != "u2" {
		t.Fatalf("收件人或触发者错误: %+v", n)
	}
	if n.Uuid == "" {
		t.Fatal("通知应生成 uuid")
	}
}

func TestOrderCreatedFansOutToAllStaff(t *testing.T) {
	svc := &fakeNotificationService{}
	h := NewNotificationEventHandler(svc)

	err := h.Handle(context.Background(), mq.Message{
		Topic: TopicOrderCreated,
		Value: []byte(`{"order_id":"O1","customer_id":"u1","customer_name":"张三","staff_ids":["s1","s2"]}`),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(svc.created) != 2 {
		t.Fatalf("期望给 2 名员工各一条通知，得到 %d", len(svc.created))
	}
	for i, n := range svc.created {
		if n.Audience != notificationEntity.AudienceStaff {
			t.Fatalf("受众应为员工: %+v", n)
		}
		if svc.metas[i] == nil || svc.metas[i].OrderId != "O1" || svc.metas[i].CustomerName != "张三" {
			t.Fatalf("订单元数据错误: %+v", svc.metas[i])
		}
	}
}

func TestMalformedPayloadSkippedWithoutError(t *testing.T) {
	svc := &fakeNotificationService{}
	h := NewNotificationEventHandler(svc)

	cases := []mq.Message{
		{Topic: TopicCommentReplied, Value: []byte(`not-json`)},
		{Topic: TopicOrderStatus, Value: []byte(`{"order_id":""}`)},
		{Topic: TopicOrderCreated, Value: []byte(`{"order_id":"O1","staff_ids":[]}`)},
		{Topic: "unknown.topic", Value: []byte(`{}`)},
	}
	for _, msg := range cases {
		if err := h.Handle(context.Background(), msg); err != nil {
			t.Fatalf("解析失败应跳过而非报错 (%s): %v", msg.Topic, err)
		}
	}
	if len(svc.created) != 0 {
		t.Fatalf("非法事件不应生成通知，得到 %d 条", len(svc.created))
	}
}

func TestOrderStatusDefaultsTitleAndMessage(t *testing.T) {
	svc := &fakeNotificationService{}
	h := NewNotificationEventHandler(svc)

	err := h.Handle(context.Background(), mq.Message{
		Topic: TopicOrderStatus,
		Value: []byte(`{"order_id":"O2","customer_id":"u1","status":"shipped"}`),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(svc.created) != 1 {
		t.Fatalf("期望 1 条通知，得到 %d", len(svc.created))
	}
	n := svc.created[0]
	if n.Title == "" || n.Message == "" {
		t.Fatalf("标题与正文应有缺省值: %+v", n)
	}
	if svc.metas[0] == nil || svc.metas[0].Status != "shipped" {
		t.Fatalf("状态元数据错误: %+v", svc.metas[0])
	}
}
