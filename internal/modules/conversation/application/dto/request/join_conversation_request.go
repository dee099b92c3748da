package request

import "encoding/json"

// ClientEnvelope 客户端经 websocket 上行的事件外层结构
type ClientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinConversationRequest join_conversation 事件载荷
type JoinConversationRequest struct {
	ConversationId string `json:"conversation_id"`
}
