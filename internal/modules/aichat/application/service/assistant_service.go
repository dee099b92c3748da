package service

import (
	"context"
	"strings"
	"time"

	aichatRequest "ShopPulse/internal/modules/aichat/application/dto/request"
	aichatRespond "ShopPulse/internal/modules/aichat/application/dto/respond"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "你是商城的购物助手，负责回答商品、订单、售后相关的问题。回答要简洁、友好，不确定的信息不要编造。"

// 历史轮次上限，超出部分按时间从旧到新截断
const maxHistoryTurns = 20

type AssistantService interface {
	// Chat 无状态问答：历史由客户端携带，服务端只做一次模型调用
	Chat(ctx context.Context, req aichatRequest.AiChatRequest) (*aichatRespond.AiChatRespond, error)
}

type assistantServiceImpl struct {
	chatModel model.BaseChatModel
}

func NewAssistantService(chatModel model.BaseChatModel) AssistantService {
	return &assistantServiceImpl{chatModel: chatModel}
}

func (s *assistantServiceImpl) Chat(ctx context.Context, req aichatRequest.AiChatRequest) (*aichatRespond.AiChatRespond, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, xerr.New(xerr.BadRequest, "消息内容不能为空")
	}
	if s.chatModel == nil {
		return nil, xerr.New(xerr.InternalServerError, "AI 助手未配置")
	}

	msgs := make([]*schema.Message, 0, len(req.History)+2)
	msgs = append(msgs, &schema.Message{Role: schema.System, Content: systemPrompt})

	history := req.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, h := range history {
		content := strings.TrimSpace(h.Content)
		if content == "" {
			continue
		}
		role := schema.User
		if strings.EqualFold(h.Role, "assistant") || strings.EqualFold(h.Role, "ai") {
			role = schema.Assistant
		}
		msgs = append(msgs, &schema.Message{Role: role, Content: content})
	}

	msgs = append(msgs, userMessage(question, strings.TrimSpace(req.Image)))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := s.chatModel.Generate(ctx, msgs)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.New(xerr.InternalServerError, "AI 助手暂时不可用，请稍后再试")
	}

	return &aichatRespond.AiChatRespond{Reply: resp.Content}, nil
}

// userMessage 带图片时使用多段内容，否则纯文本
func userMessage(text string, image string) *schema.Message {
	if image == "" {
		return &schema.Message{Role: schema.User, Content: text}
	}
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: text},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: image,
				},
			},
		},
	}
}
