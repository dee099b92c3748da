package handler

import (
	"encoding/json"
	"net/http"

	conversationRequest "ShopPulse/internal/modules/conversation/application/dto/request"
	conversationRespond "ShopPulse/internal/modules/conversation/application/dto/respond"
	"ShopPulse/internal/modules/conversation/application/service"
	conversationRepository "ShopPulse/internal/modules/conversation/domain/repository"
	"ShopPulse/pkg/util/myjwt"
	"ShopPulse/pkg/ws"
	"ShopPulse/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WsHandler struct {
	hub      *ws.Hub
	convSvc  service.ConversationService
	msgSvc   service.MessageService
	convRepo conversationRepository.ConversationRepository
}

func NewWsHandler(hub *ws.Hub, convSvc service.ConversationService, msgSvc service.MessageService, convRepo conversationRepository.ConversationRepository) *WsHandler {
	return &WsHandler{hub: hub, convSvc: convSvc, msgSvc: msgSvc, convRepo: convRepo}
}

// Connect GET /wss?token=xxx
// 鉴权通过后升级为 websocket，连接按用户注册到 hub。
// 上行只处理 join_conversation，下行事件统一走 Envelope。
func (h *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Sec-WebSocket-Protocol")
	}

	claims, err := myjwt.ParseToken(token)
	if err != nil {
		zlog.Warn("websocket 鉴权失败: " + err.Error())
		c.Status(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error(err.Error())
		return
	}

	client := ws.NewClient(claims.Uuid, conn)
	h.hub.Register(client)
	go client.WritePump()

	go h.readLoop(client, conn, claims)
}

func (h *WsHandler) readLoop(client *ws.Client, conn *websocket.Conn, claims *myjwt.CustomClaims) {
	defer h.hub.Unregister(client)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env conversationRequest.ClientEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			zlog.Warn("非法的上行消息: " + err.Error())
			continue
		}

		switch env.Event {
		case "join_conversation":
			h.handleJoin(client, env.Data, claims)
		default:
			zlog.Warn("未知的上行事件: " + env.Event)
		}
	}
}

// handleJoin 校验访问权后加入房间，并回发一次历史快照
func (h *WsHandler) handleJoin(client *ws.Client, data json.RawMessage, claims *myjwt.CustomClaims) {
	var req conversationRequest.JoinConversationRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ConversationId == "" {
		zlog.Warn("join_conversation 载荷不合法")
		return
	}

	conv, err := h.convSvc.CheckAccess(req.ConversationId, claims.Uuid, claims.Role)
	if err != nil {
		zlog.Warn("join_conversation 拒绝: " + err.Error())
		return
	}

	h.hub.Join(client, conv.Uuid)

	// 入房即视为在看，清掉本方的未读数
	if err := h.convRepo.ResetUnread(conv.Uuid, claims.Role == myjwt.RoleStaff); err != nil {
		zlog.Error(err.Error())
	}

	history, err := h.msgSvc.History(conv.Uuid, 1, 50)
	if err != nil {
		zlog.Error(err.Error())
		return
	}
	_ = h.hub.SendEventTo(client, conversationRespond.EventHistoryMessages, history)
}
