package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aokisora/socialnet/server/config"
	"github.com/aokisora/socialnet/server/feed"
	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/model"
)

// PostHandler handles post REST endpoints, including the friend feed.
type PostHandler struct {
	db         *gorm.DB
	feed       *feed.Service
	maxContent int
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(db *gorm.DB, f *feed.Service, social config.SocialConfig) *PostHandler {
	maxContent := social.MaxContentLength
	if maxContent <= 0 {
		maxContent = model.MaxContentLength
	}
	return &PostHandler{db: db, feed: f, maxContent: maxContent}
}

type newPostRequest struct {
	Content  string `json:"content" binding:"required"`
	ImageURL string `json:"imageUrl"`
}

// Create handles POST /api/posts/new.
func (h *PostHandler) Create(c *gin.Context) {
	var req newPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Content) > h.maxContent {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("content exceeds %d characters", h.maxContent)})
		return
	}

	post := &model.Post{
		AuthorID: mw.GetUserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
	}
	if err := h.db.Create(post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "post failed"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Read handles GET /api/posts/read. Selects by ?id, by ?authorID, or
// everything newest first when neither is given.
func (h *PostHandler) Read(c *gin.Context) {
	if idStr := c.Query("id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var post model.Post
		if err := h.db.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		c.JSON(http.StatusOK, post)
		return
	}

	q := h.db.Order("created_at DESC")
	if authorStr := c.Query("authorID"); authorStr != "" {
		authorID, err := strconv.ParseInt(authorStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid authorID"})
			return
		}
		q = q.Where("author_id = ?", authorID)
	}

	posts := make([]model.Post, 0)
	if err := q.Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

type updatePostRequest struct {
	Content string `json:"content" binding:"required"`
}

// Update handles PUT /api/posts/update/:id. Author only.
func (h *PostHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Content) > h.maxContent {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("content exceeds %d characters", h.maxContent)})
		return
	}

	var post model.Post
	if err := h.db.First(&post, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if post.AuthorID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your post"})
		return
	}

	if err := h.db.Model(&post).Update("content", req.Content).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// Delete handles DELETE /api/posts/delete/:id. Author only.
func (h *PostHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var post model.Post
	if err := h.db.First(&post, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if post.AuthorID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your post"})
		return
	}

	if err := h.db.Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// Feed handles GET /api/posts/feed/:id.
//
// A user with accepted friends who have not posted gets an empty array; a
// user with no accepted friends at all gets a 404. The two cases are distinct
// on purpose so clients can prompt "add friends" versus "nothing new".
func (h *PostHandler) Feed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	posts, err := h.feed.Generate(c.Request.Context(), id)
	if errors.Is(err, feed.ErrNoFriends) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no friends found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, posts)
}
