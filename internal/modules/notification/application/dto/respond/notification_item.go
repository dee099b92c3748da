package respond

// NotificationItem 通知列表项
type NotificationItem struct {
	NotificationId string `json:"notificationId"`
	RecipientId    string `json:"recipientId"`
	Actor          string `json:"actor"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Link           string `json:"link,omitempty"`
	RefId          string `json:"refId,omitempty"`
	RefType        string `json:"refType,omitempty"`
	IsRead         bool   `json:"isRead"`
	CreatedAt      string `json:"createdAt"`
}

// ListNotificationsRespond 分页列表响应，附带当前未读数
type ListNotificationsRespond struct {
	Notifications []NotificationItem `json:"notifications"`
	Total         int64              `json:"total"`
	Page          int                `json:"page"`
	Limit         int                `json:"limit"`
	TotalPages    int                `json:"totalPages"`
	UnreadCount   int64              `json:"unreadCount"`
}

// UnreadCountRespond 未读数响应
type UnreadCountRespond struct {
	UnreadCount int64 `json:"unreadCount"`
}

// MarkAllReadRespond 全部已读响应，modifiedCount 为实际翻转的条数
type MarkAllReadRespond struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}
