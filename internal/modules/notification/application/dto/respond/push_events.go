package respond

// 服务端推送事件名
const (
	EventNotificationNew = "notification:new"
	EventCommentReply    = "notification:comment-reply"
	EventUnreadCount     = "notification:unread-count"
	EventOrderStatus     = "order:status-updated"
	EventStaffNewOrder   = "staff:new-order"
)

// NotificationPush notification:new / notification:comment-reply 的载荷
type NotificationPush struct {
	NotificationId string `json:"notificationId"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Link           string `json:"link,omitempty"`
	Actor          string `json:"actor,omitempty"`
}

// UnreadCountPush notification:unread-count 的载荷
type UnreadCountPush struct {
	Count int64 `json:"count"`
}

// OrderStatusPush order:status-updated 的载荷
type OrderStatusPush struct {
	OrderId string `json:"orderId"`
	Status  string `json:"status"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// OrderMetadata staff:new-order 附带的订单信息
type OrderMetadata struct {
	OrderId      string `json:"order_id"`
	CustomerName string `json:"customer_name"`
	Status       string `json:"-"`
}

// StaffNewOrderPush staff:new-order 的载荷
type StaffNewOrderPush struct {
	NotificationId string        `json:"notificationId"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Actor          string        `json:"actor"`
	Metadata       OrderMetadata `json:"metadata"`
}
