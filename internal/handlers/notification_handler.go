package handlers

import (
	"context"

	"hsk-exam-service/internal/middleware"
	"hsk-exam-service/internal/response"
	"hsk-exam-service/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Service *service.NotificationService
}

func NewNotificationHandler(s *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: s}
}

func (h *NotificationHandler) GetMyNotifications(c *gin.Context) {
	page, limit := paging(c)
	notifications, total, err := h.Service.GetMyNotifications(context.Background(), middleware.UserID(c), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, "Notifications retrieved successfully", notifications, response.NewPagination(page, limit, total))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.Service.MarkRead(context.Background(), middleware.UserID(c), c.Param("notificationId")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Notification marked as read", nil)
}
