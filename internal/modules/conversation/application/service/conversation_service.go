package service

import (
	"context"
	"errors"
	"time"

	conversationRespond "ShopPulse/internal/modules/conversation/application/dto/respond"
	conversationEntity "ShopPulse/internal/modules/conversation/domain/entity"
	conversationRepository "ShopPulse/internal/modules/conversation/domain/repository"
	"ShopPulse/pkg/redis"
	"ShopPulse/pkg/util"
	"ShopPulse/pkg/util/myjwt"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"gorm.io/gorm"
)

const convCacheTTL = 24 * time.Hour

type ConversationService interface {
	// CreateOrGet 幂等创建：已有活跃会话时直接返回，is_new=false
	CreateOrGet(customerID string) (*conversationRespond.OpenConversationRespond, error)
	// CheckAccess 校验 callerID 是否可进入会话（顾客本人或员工）
	CheckAccess(conversationID string, callerID string, role string) (*conversationEntity.Conversation, error)
}

type conversationServiceImpl struct {
	convRepo conversationRepository.ConversationRepository
}

func NewConversationService(convRepo conversationRepository.ConversationRepository) ConversationService {
	return &conversationServiceImpl{convRepo: convRepo}
}

func (s *conversationServiceImpl) CreateOrGet(customerID string) (*conversationRespond.OpenConversationRespond, error) {
	if customerID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	// 先查缓存的会话ID，缓存命中仍回源确认会话没有被关闭
	if redis.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		cached, err := redis.Get(ctx, convCacheKey(customerID))
		cancel()
		if err == nil && cached != "" {
			conv, err := s.convRepo.GetByUuid(cached)
			if err == nil && conv.IsActive {
				return &conversationRespond.OpenConversationRespond{
					ConversationId: conv.Uuid,
					IsNew:          false,
					State:          conv.State,
				}, nil
			}
		}
	}

	conv, err := s.convRepo.GetActiveByCustomerID(customerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	isNew := false
	if conv == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		conv = &conversationEntity.Conversation{
			Uuid:       util.GenerateConversationID(),
			CustomerId: customerID,
			State:      conversationEntity.StateOpen,
			IsActive:   true,
			CreatedAt:  time.Now(),
		}
		if err := s.convRepo.Create(conv); err != nil {
			zlog.Error(err.Error())
			return nil, xerr.ErrServerError
		}
		isNew = true
	}

	if redis.IsConnected() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = redis.Set(ctx, convCacheKey(customerID), conv.Uuid, convCacheTTL)
		cancel()
	}

	return &conversationRespond.OpenConversationRespond{
		ConversationId: conv.Uuid,
		IsNew:          isNew,
		State:          conv.State,
	}, nil
}

func (s *conversationServiceImpl) CheckAccess(conversationID string, callerID string, role string) (*conversationEntity.Conversation, error) {
	if conversationID == "" || callerID == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	conv, err := s.convRepo.GetByUuid(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrConversationNotFound
		}
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	if role != myjwt.RoleStaff && conv.CustomerId != callerID {
		return nil, xerr.New(xerr.Forbidden, "无权访问该会话")
	}
	return conv, nil
}

func convCacheKey(customerID string) string {
	return "conv:user:" + customerID
}
