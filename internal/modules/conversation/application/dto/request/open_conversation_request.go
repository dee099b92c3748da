package request

// OpenConversationRequest 创建或复用会话。
// userId 仅员工端需要（代顾客打开会话），顾客端取 token 里的身份。
type OpenConversationRequest struct {
	UserId string `json:"userId"`
}
