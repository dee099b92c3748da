package request

// ListNotificationsRequest 通知列表查询参数（query string 绑定）
type ListNotificationsRequest struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	Type       string `form:"type"`
	IsRead     *bool  `form:"is_read"`
	UnreadOnly bool   `form:"unread_only"`
}
