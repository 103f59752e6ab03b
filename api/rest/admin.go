package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/aokisora/socialnet/server/scheduler"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db       *gorm.DB
	registry *realtime.Registry
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, registry *realtime.Registry, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, registry: registry, sched: sched, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var users, posts, notifications int64
	h.db.Model(&model.User{}).Count(&users)
	h.db.Model(&model.Post{}).Count(&posts)
	h.db.Model(&model.Notification{}).Count(&notifications)

	c.JSON(http.StatusOK, gin.H{
		"online_users":    h.registry.Count(),
		"total_users":     users,
		"total_posts":     posts,
		"notifications":   notifications,
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// Online returns a snapshot of all users with a registered push session.
// GET /api/admin/online
func (h *AdminHandler) Online(c *gin.Context) {
	ids := h.registry.OnlineIDs()
	c.JSON(http.StatusOK, gin.H{"user_ids": ids, "count": len(ids)})
}

// Kick forcibly disconnects a user's push session by user ID.
// POST /api/admin/kick/:id
func (h *AdminHandler) Kick(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	s := h.registry.Lookup(userID)
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not online"})
		return
	}
	s.Close()
	h.registry.Unregister(s)
	h.logger.Info("admin kicked user", zap.Int64("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
