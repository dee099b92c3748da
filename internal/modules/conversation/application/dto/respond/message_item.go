package respond

// 会话相关推送事件名
const (
	EventHistoryMessages = "history.messages"
	EventMessageNew      = "message.new"
)

// AttachmentItem 消息附件
type AttachmentItem struct {
	Url  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// MessageItem 消息响应 / message.new 推送载荷
type MessageItem struct {
	MessageId      string           `json:"message_id"`
	ConversationId string           `json:"conversation_id"`
	SenderType     string           `json:"sender_type"`
	SenderId       string           `json:"sender_id"`
	Content        string           `json:"content"`
	Attachments    []AttachmentItem `json:"attachments"`
	IsRead         bool             `json:"is_read"`
	CreatedAt      string           `json:"created_at"`
}
