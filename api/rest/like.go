package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/notify"
)

// LikeHandler handles like REST endpoints. Liking a post also feeds the
// notification fan-out; the like itself succeeds regardless of what the
// fan-out does with the event.
type LikeHandler struct {
	db     *gorm.DB
	notify *notify.Service
	logger *zap.Logger
}

// NewLikeHandler creates a new LikeHandler.
func NewLikeHandler(db *gorm.DB, n *notify.Service, logger *zap.Logger) *LikeHandler {
	return &LikeHandler{db: db, notify: n, logger: logger}
}

type likeRequest struct {
	PostID    *int64 `json:"postID"`
	CommentID *int64 `json:"commentID"`
}

func (r *likeRequest) valid() bool {
	return (r.PostID != nil) != (r.CommentID != nil)
}

// Create handles POST /api/likes/new. Exactly one of postID / commentID.
func (h *LikeHandler) Create(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of postID or commentID required"})
		return
	}

	authorID := mw.GetUserID(c)

	var existing int64
	q := h.db.Model(&model.Like{}).Where("author_id = ?", authorID)
	if req.PostID != nil {
		q = q.Where("post_id = ?", *req.PostID)
	} else {
		q = q.Where("comment_id = ?", *req.CommentID)
	}
	if err := q.Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "already liked"})
		return
	}

	like := &model.Like{AuthorID: authorID, PostID: req.PostID, CommentID: req.CommentID}
	if err := h.db.Create(like).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like failed"})
		return
	}

	if req.PostID != nil {
		h.notifyPostAuthor(c, authorID, *req.PostID)
	}
	c.JSON(http.StatusCreated, like)
}

// notifyPostAuthor emits a like event toward the post's author. Best-effort:
// the like already committed, so every failure here is logged and dropped.
func (h *LikeHandler) notifyPostAuthor(c *gin.Context, senderID, postID int64) {
	var post model.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		h.logger.Warn("like notification skipped, post lookup failed",
			zap.Int64("post_id", postID), zap.Error(err))
		return
	}
	var sender model.User
	senderName := ""
	if err := h.db.First(&sender, senderID).Error; err == nil {
		senderName = sender.Username
	}

	err := h.notify.HandleEvent(c.Request.Context(), notify.Event{
		Kind:       notify.KindLike,
		SenderID:   senderID,
		ReceiverID: post.AuthorID,
		ContentID:  postID,
		SenderName: senderName,
		Label:      "liked your post!",
	})
	if err != nil {
		h.logger.Warn("like notification dropped",
			zap.Int64("sender_id", senderID),
			zap.Int64("post_id", postID),
			zap.Error(err))
	}
}

// Remove handles DELETE /api/likes/remove.
func (h *LikeHandler) Remove(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of postID or commentID required"})
		return
	}

	q := h.db.Where("author_id = ?", mw.GetUserID(c))
	if req.PostID != nil {
		q = q.Where("post_id = ?", *req.PostID)
	} else {
		q = q.Where("comment_id = ?", *req.CommentID)
	}

	res := q.Delete(&model.Like{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unlike failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "like not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unliked"})
}

// ByPost handles GET /api/likes/post/:postID.
func (h *LikeHandler) ByPost(c *gin.Context) {
	h.list(c, "post_id = ?", c.Param("postID"))
}

// ByComment handles GET /api/likes/comment/:commentID.
func (h *LikeHandler) ByComment(c *gin.Context) {
	h.list(c, "comment_id = ?", c.Param("commentID"))
}

// ByUser handles GET /api/likes/user/:authorID.
func (h *LikeHandler) ByUser(c *gin.Context) {
	h.list(c, "author_id = ?", c.Param("authorID"))
}

func (h *LikeHandler) list(c *gin.Context, cond, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	likes := make([]model.Like, 0)
	if err := h.db.Where(cond, id).Find(&likes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, likes)
}
