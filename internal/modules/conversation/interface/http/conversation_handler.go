package handler

import (
	"strconv"

	conversationRequest "ShopPulse/internal/modules/conversation/application/dto/request"
	"ShopPulse/internal/modules/conversation/application/service"
	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	"ShopPulse/pkg/back"
	"ShopPulse/pkg/util/myjwt"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convSvc service.ConversationService
	msgSvc  service.MessageService
}

func NewConversationHandler(convSvc service.ConversationService, msgSvc service.MessageService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc, msgSvc: msgSvc}
}

// Open POST /conversations
// 幂等：同一顾客重复调用返回同一个活跃会话
func (h *ConversationHandler) Open(c *gin.Context) {
	var req conversationRequest.OpenConversationRequest
	_ = c.ShouldBindJSON(&req)

	customerID := c.GetString("uuid")
	if req.UserId != "" && req.UserId != customerID {
		back.Error(c, xerr.Forbidden, "无权为其他用户创建会话")
		return
	}

	data, err := h.convSvc.CreateOrGet(customerID)
	back.Result(c, data, err)
}

// History GET /conversations/:id/messages
func (h *ConversationHandler) History(c *gin.Context) {
	convID := c.Param("id")
	if _, err := h.convSvc.CheckAccess(convID, c.GetString("uuid"), c.GetString("role")); err != nil {
		back.Result(c, nil, err)
		return
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 50)
	data, err := h.msgSvc.History(convID, page, limit)
	back.Result(c, data, err)
}

// SendMessage POST /conversations/:id/messages
// multipart 表单：content 文本 + files 附件（最多 5 个）
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	h.send(c, conversationEntity.SenderUser)
}

// SendStaffMessage POST /conversations/:id/messages/staff
func (h *ConversationHandler) SendStaffMessage(c *gin.Context) {
	h.send(c, conversationEntity.SenderStaff)
}

func (h *ConversationHandler) send(c *gin.Context, senderType string) {
	convID := c.Param("id")
	callerID := c.GetString("uuid")
	if _, err := h.convSvc.CheckAccess(convID, callerID, c.GetString("role")); err != nil {
		back.Result(c, nil, err)
		return
	}
	if senderType == conversationEntity.SenderStaff && c.GetString("role") != myjwt.RoleStaff {
		back.Error(c, xerr.Forbidden, "仅限员工操作")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	content := c.PostForm("content")
	files := form.File["files"]

	data, err := h.msgSvc.Send(convID, callerID, senderType, content, files)
	back.Result(c, data, err)
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
