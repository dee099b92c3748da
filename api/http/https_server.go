package http

import (
	"context"

	"ShopPulse/internal/config"
	"ShopPulse/internal/initial"
	jwtMiddleware "ShopPulse/internal/middleware/jwt"
	aichatService "ShopPulse/internal/modules/aichat/application/service"
	aichatLlm "ShopPulse/internal/modules/aichat/infrastructure/llm"
	aichatHandler "ShopPulse/internal/modules/aichat/interface/http"
	conversationService "ShopPulse/internal/modules/conversation/application/service"
	conversationPersistence "ShopPulse/internal/modules/conversation/infrastructure/persistence"
	"ShopPulse/internal/modules/conversation/infrastructure/storage"
	conversationHandler "ShopPulse/internal/modules/conversation/interface/http"
	notificationService "ShopPulse/internal/modules/notification/application/service"
	"ShopPulse/internal/modules/notification/infrastructure/mq"
	"ShopPulse/internal/modules/notification/infrastructure/mq/kafka"
	notificationPersistence "ShopPulse/internal/modules/notification/infrastructure/persistence"
	notificationEvent "ShopPulse/internal/modules/notification/interface/event"
	notificationHandler "ShopPulse/internal/modules/notification/interface/http"
	"ShopPulse/pkg/ssl"
	"ShopPulse/pkg/ws"
	"ShopPulse/pkg/zlog"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var GE *gin.Engine

// eventConsumer 在 main 中随服务启动，消费上游业务事件生成通知
var eventConsumer mq.Consumer
var eventHandler *notificationEvent.NotificationEventHandler

func init() {
	conf := config.GetConfig()

	GE = gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))

	wsHub := ws.NewHub()

	notifRepo := notificationPersistence.NewNotificationRepository(initial.GormDB)
	convRepo := conversationPersistence.NewConversationRepository(initial.GormDB)
	msgRepo := conversationPersistence.NewMessageRepository(initial.GormDB)

	var auditPublisher mq.Publisher
	if len(conf.KafkaConfig.Brokers) > 0 {
		p, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			zlog.Warn("kafka publisher 初始化失败，审计事件将被跳过: " + err.Error())
		} else {
			auditPublisher = p
		}
	}

	attachmentStore, err := storage.NewLocalStore(conf.UploadConfig.Dir, conf.UploadConfig.BaseURL)
	if err != nil {
		zlog.Fatal("附件存储初始化失败: " + err.Error())
	}

	notifSvc := notificationService.NewNotificationService(notifRepo, wsHub, auditPublisher, conf.KafkaConfig.AuditTopic)
	convSvc := conversationService.NewConversationService(convRepo)
	msgSvc := conversationService.NewMessageService(msgRepo, convRepo, convSvc, attachmentStore, wsHub)

	chatModel, meta, err := aichatLlm.NewChatModelFromConfig(context.Background(), conf)
	if err != nil {
		zlog.Warn("AI 助手未启用: " + err.Error())
	} else {
		zlog.Info("AI 助手已启用: " + meta.Provider + "/" + meta.Model)
	}
	assistantSvc := aichatService.NewAssistantService(chatModel)

	notifH := notificationHandler.NewNotificationHandler(notifSvc)
	convH := conversationHandler.NewConversationHandler(convSvc, msgSvc)
	wsH := conversationHandler.NewWsHandler(wsHub, convSvc, msgSvc, convRepo)
	aiH := aichatHandler.NewAssistantHandler(assistantSvc)

	eventHandler = notificationEvent.NewNotificationEventHandler(notifSvc)
	if len(conf.KafkaConfig.Brokers) > 0 && len(conf.KafkaConfig.EventTopics) > 0 {
		c, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			GroupID:  conf.KafkaConfig.ConsumerGroupID,
			Topics:   conf.KafkaConfig.EventTopics,
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			zlog.Warn("kafka consumer 初始化失败，通知事件消费不可用: " + err.Error())
		} else {
			eventConsumer = c
		}
	}

	GE.GET("/wss", wsH.Connect)
	GE.Static("/uploads", conf.UploadConfig.Dir)

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())

	authed.GET("/notifications", notifH.List)
	authed.GET("/notifications/unread-count", notifH.UnreadCount)
	authed.PATCH("/notifications/read-all", notifH.MarkAllRead)
	authed.PATCH("/notifications/:id/read", notifH.MarkRead)
	authed.PATCH("/notifications/:id/hide", notifH.Hide)
	authed.DELETE("/notifications/:id", notifH.Delete)
	authed.DELETE("/notifications", notifH.DeleteAll)

	staff := authed.Group("/")
	staff.Use(jwtMiddleware.StaffOnly())
	staff.GET("/notifications/staff", notifH.ListStaff)
	staff.GET("/notifications/staff/unread-count", notifH.UnreadCountStaff)
	staff.PATCH("/notifications/staff/:id/read", notifH.MarkReadStaff)

	authed.POST("/conversations", convH.Open)
	authed.GET("/conversations/:id/messages", convH.History)
	authed.POST("/conversations/:id/messages", convH.SendMessage)
	staff.POST("/conversations/:id/messages/staff", convH.SendStaffMessage)

	authed.POST("/ai/chat", aiH.Chat)
}

// RunEventConsumer 阻塞消费通知事件，ctx 取消后返回
func RunEventConsumer(ctx context.Context) {
	if eventConsumer == nil {
		return
	}
	if err := eventConsumer.Run(ctx, eventHandler); err != nil {
		zlog.Error("通知事件消费退出: " + err.Error())
	}
}

// CloseEventConsumer 优雅关闭时释放 kafka 资源
func CloseEventConsumer() {
	if eventConsumer != nil {
		_ = eventConsumer.Close()
	}
}
