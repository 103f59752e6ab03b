package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aokisora/socialnet/server/config"
	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/model"
)

// CommentHandler handles comment REST endpoints.
type CommentHandler struct {
	db         *gorm.DB
	maxContent int
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(db *gorm.DB, social config.SocialConfig) *CommentHandler {
	maxContent := social.MaxContentLength
	if maxContent <= 0 {
		maxContent = model.MaxContentLength
	}
	return &CommentHandler{db: db, maxContent: maxContent}
}

type newCommentRequest struct {
	PostID  int64  `json:"postID" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Create handles POST /api/comments/new.
func (h *CommentHandler) Create(c *gin.Context) {
	var req newCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Content) > h.maxContent {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("content exceeds %d characters", h.maxContent)})
		return
	}

	// The post must exist; a comment on a deleted post is an orphan.
	var post model.Post
	if err := h.db.First(&post, req.PostID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	comment := &model.Comment{
		AuthorID: mw.GetUserID(c),
		PostID:   req.PostID,
		Content:  req.Content,
	}
	if err := h.db.Create(comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "comment failed"})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Read handles GET /api/comments/read. Selects by ?id or by ?postID.
func (h *CommentHandler) Read(c *gin.Context) {
	if idStr := c.Query("id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var comment model.Comment
		if err := h.db.First(&comment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		c.JSON(http.StatusOK, comment)
		return
	}

	postStr := c.Query("postID")
	if postStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id or postID required"})
		return
	}
	postID, err := strconv.ParseInt(postStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid postID"})
		return
	}

	comments := make([]model.Comment, 0)
	if err := h.db.Where("post_id = ?", postID).Order("created_at").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, comments)
}

type updateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// Update handles PUT /api/comments/update/:id. Author only.
func (h *CommentHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Content) > h.maxContent {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("content exceeds %d characters", h.maxContent)})
		return
	}

	var comment model.Comment
	if err := h.db.First(&comment, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if comment.AuthorID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your comment"})
		return
	}

	if err := h.db.Model(&comment).Update("content", req.Content).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// Delete handles DELETE /api/comments/delete/:id. Author only.
func (h *CommentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var comment model.Comment
	if err := h.db.First(&comment, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		return
	}
	if comment.AuthorID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your comment"})
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
