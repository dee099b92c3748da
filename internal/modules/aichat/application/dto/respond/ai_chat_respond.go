package respond

// AiChatRespond AI 回复
type AiChatRespond struct {
	Reply string `json:"reply"`
}
