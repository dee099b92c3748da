package handler

import (
	aichatRequest "ShopPulse/internal/modules/aichat/application/dto/request"
	"ShopPulse/internal/modules/aichat/application/service"
	"ShopPulse/pkg/back"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	svc service.AssistantService
}

func NewAssistantHandler(svc service.AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// Chat POST /ai/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req aichatRequest.AiChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.svc.Chat(c.Request.Context(), req)
	back.Result(c, data, err)
}
