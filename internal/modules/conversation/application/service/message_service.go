package service

import (
	"mime/multipart"
	"strings"
	"time"

	conversationRespond "ShopPulse/internal/modules/conversation/application/dto/respond"
	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	conversationRepository "ShopPulse/internal/modules/conversation/domain/repository"
	"ShopPulse/internal/modules/conversation/infrastructure/storage"
	"ShopPulse/pkg/util"
	"ShopPulse/pkg/ws"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"
)

// MaxAttachments 单条消息的附件上限
const MaxAttachments = 5

type MessageService interface {
	// Send 文本与附件打包成一条消息落库并推送到会话房间。
	// 文本与附件不能同时为空；附件超过上限直接拒绝。
	Send(conversationID string, senderID string, senderType string, text string, files []*multipart.FileHeader) (*conversationRespond.MessageItem, error)
	// History 按时间正序返回会话消息（join 时的快照）
	History(conversationID string, page int, pageSize int) ([]conversationRespond.MessageItem, error)
}

type messageServiceImpl struct {
	msgRepo  conversationRepository.MessageRepository
	convRepo conversationRepository.ConversationRepository
	convSvc  ConversationService
	store    storage.AttachmentStore
	hub      *ws.Hub
}

func NewMessageService(
	msgRepo conversationRepository.MessageRepository,
	convRepo conversationRepository.ConversationRepository,
	convSvc ConversationService,
	store storage.AttachmentStore,
	hub *ws.Hub,
) MessageService {
	return &messageServiceImpl{
		msgRepo:  msgRepo,
		convRepo: convRepo,
		convSvc:  convSvc,
		store:    store,
		hub:      hub,
	}
}

func (s *messageServiceImpl) Send(conversationID string, senderID string, senderType string, text string, files []*multipart.FileHeader) (*conversationRespond.MessageItem, error) {
	if conversationID == "" || senderID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	text = strings.TrimSpace(text)
	if text == "" && len(files) == 0 {
		return nil, xerr.ErrEmptyMessage
	}
	if len(files) > MaxAttachments {
		return nil, xerr.ErrTooManyAttachments
	}

	conv, err := s.convRepo.GetByUuid(conversationID)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrConversationNotFound
	}

	attachments := make([]conversationEntity.Attachment, 0, len(files))
	for _, fh := range files {
		att, err := s.store.Save(fh)
		if err != nil {
			zlog.Error(err.Error())
			return nil, xerr.New(xerr.InternalServerError, "附件保存失败")
		}
		attachments = append(attachments, att)
	}

	now := time.Now()
	msg := &conversationEntity.Message{
		Uuid:           util.GenerateMessageID(),
		ConversationId: conv.Uuid,
		SenderType:     senderType,
		SenderId:       senderID,
		Content:        text,
		Attachments:    attachments,
		CreatedAt:      now,
	}

	if err := s.msgRepo.Create(msg); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	preview := text
	if preview == "" {
		preview = "[附件]"
	}
	// 顾客发送时累加员工侧未读，反之亦然
	bumpStaff := senderType == conversationEntity.SenderUser
	if err := s.convRepo.UpdateLastMessage(conv.Uuid, preview, now, bumpStaff); err != nil {
		zlog.Error(err.Error())
	}

	item := toMessageItem(msg)

	// 服务端是消息顺序的唯一权威：推送顺序即落库顺序
	_ = s.hub.SendToRoom(conv.Uuid, conversationRespond.EventMessageNew, item)

	return &item, nil
}

func (s *messageServiceImpl) History(conversationID string, page int, pageSize int) ([]conversationRespond.MessageItem, error) {
	if conversationID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	msgs, err := s.msgRepo.ListByConversation(conversationID, page, pageSize)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	// 仓储按时间倒序返回，这里翻转为正序
	out := make([]conversationRespond.MessageItem, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, toMessageItem(&msgs[i]))
	}
	return out, nil
}

func toMessageItem(m *conversationEntity.Message) conversationRespond.MessageItem {
	atts := make([]conversationRespond.AttachmentItem, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		atts = append(atts, conversationRespond.AttachmentItem{
			Url:  a.Url,
			Kind: a.Kind,
			Name: a.Name,
			Size: a.Size,
			Mime: a.Mime,
		})
	}
	return conversationRespond.MessageItem{
		MessageId:      m.Uuid,
		ConversationId: m.ConversationId,
		SenderType:     m.SenderType,
		SenderId:       m.SenderId,
		Content:        m.Content,
		Attachments:    atts,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}
