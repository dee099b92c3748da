package respond

// OpenConversationRespond 幂等创建的结果。isNew 为 false 表示复用了已有会话。
type OpenConversationRespond struct {
	ConversationId string `json:"conversation_id"`
	IsNew          bool   `json:"is_new"`
	State          string `json:"state"`
}
