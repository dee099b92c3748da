package request

// HistoryEntry 客户端带上来的历史对话轮次，role 取值 user / assistant
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AiChatRequest 无状态 AI 问答请求。
// 服务端不保存会话，历史由客户端随每次请求完整携带。
// Image 为可选的 base64 图片（data URL），一次最多一张。
type AiChatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
	Image   string         `json:"image"`
}
