package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/code-review-backend/services"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// Danh sách thông báo
func (nc *NotificationController) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	unreadOnly := c.Query("unread") == "true"
	page := parsePage(c)
	list, total, err := nc.notifications.List(c.Request.Context(), actor, unreadOnly, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated("notifications", list, total, page))
}

// Đếm số thông báo chưa đọc
func (nc *NotificationController) UnreadCount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	count, err := nc.notifications.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// Đánh dấu đã đọc
func (nc *NotificationController) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "notification")
	if !ok {
		return
	}
	n, err := nc.notifications.MarkRead(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	updated, err := nc.notifications.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

// Xóa một thông báo cụ thể
func (nc *NotificationController) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "notification")
	if !ok {
		return
	}
	if err := nc.notifications.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}
