package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/notify"
)

// NotificationHandler handles the pull side of notifications: listing and
// marking read. The push side lives on the ws/sse surfaces.
type NotificationHandler struct {
	notify *notify.Service
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(n *notify.Service) *NotificationHandler {
	return &NotificationHandler{notify: n}
}

// List handles GET /api/notifications?id=.
func (h *NotificationHandler) List(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if id != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your notifications"})
		return
	}

	read, unread, err := h.notify.ListForRecipient(c.Request.Context(), id)
	if errors.Is(err, notify.ErrInvalidEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"readNotifs":   read,
		"unreadNotifs": unread,
	})
}

// MarkRead handles POST /api/notifications/mark-read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notify.MarkAllRead(c.Request.Context(), mw.GetUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked read"})
}
