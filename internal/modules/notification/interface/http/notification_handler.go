package handler

import (
	notificationRequest "ShopPulse/internal/modules/notification/application/dto/request"
	"ShopPulse/internal/modules/notification/application/service"
	notificationEntity "ShopPulse/internal/modules/notification/domain/entity"
	"ShopPulse/pkg/back"
	"ShopPulse/pkg/xerr"
	"ShopPulse/pkg/zlog"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc service.NotificationService
}

func NewNotificationHandler(svc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	h.list(c, notificationEntity.AudienceCustomer)
}

// ListStaff GET /notifications/staff
func (h *NotificationHandler) ListStaff(c *gin.Context) {
	h.list(c, notificationEntity.AudienceStaff)
}

func (h *NotificationHandler) list(c *gin.Context, audience string) {
	var req notificationRequest.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		zlog.Error(err.Error())
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	data, err := h.svc.List(c.GetString("uuid"), audience, req)
	back.Result(c, data, err)
}

// UnreadCount GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	data, err := h.svc.UnreadCount(c.GetString("uuid"), notificationEntity.AudienceCustomer)
	back.Result(c, data, err)
}

// UnreadCountStaff GET /notifications/staff/unread-count
func (h *NotificationHandler) UnreadCountStaff(c *gin.Context) {
	data, err := h.svc.UnreadCount(c.GetString("uuid"), notificationEntity.AudienceStaff)
	back.Result(c, data, err)
}

// MarkRead PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	err := h.svc.MarkRead(c.Param("id"), c.GetString("uuid"), notificationEntity.AudienceCustomer)
	back.Result(c, nil, err)
}

// MarkReadStaff PATCH /notifications/staff/:id/read
func (h *NotificationHandler) MarkReadStaff(c *gin.Context) {
	err := h.svc.MarkRead(c.Param("id"), c.GetString("uuid"), notificationEntity.AudienceStaff)
	back.Result(c, nil, err)
}

// MarkAllRead PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	data, err := h.svc.MarkAllRead(c.GetString("uuid"), notificationEntity.AudienceCustomer)
	back.Result(c, data, err)
}

// Hide PATCH /notifications/:id/hide
func (h *NotificationHandler) Hide(c *gin.Context) {
	err := h.svc.Hide(c.Param("id"), c.GetString("uuid"))
	back.Result(c, nil, err)
}

// Delete DELETE /notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Param("id"), c.GetString("uuid"), notificationEntity.AudienceCustomer)
	back.Result(c, nil, err)
}

// DeleteAll DELETE /notifications
func (h *NotificationHandler) DeleteAll(c *gin.Context) {
	err := h.svc.DeleteAll(c.GetString("uuid"), notificationEntity.AudienceCustomer)
	back.Result(c, nil, err)
}
