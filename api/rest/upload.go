package rest

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/storage"
)

const maxUploadBytes = 10 << 20 // 10 MiB

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// UploadHandler handles image uploads for profile pictures and posts.
type UploadHandler struct {
	store  storage.BlobStore
	logger *zap.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(store storage.BlobStore, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// Upload handles POST /api/upload. Multipart field "image".
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExt[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer src.Close()

	// Object names are never taken from the client.
	name := fmt.Sprintf("%d/%s%s", mw.GetUserID(c), uuid.NewString(), ext)
	url, err := h.store.Save(c.Request.Context(), name, src)
	if err != nil {
		h.logger.Error("upload failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

type deleteUploadRequest struct {
	URL string `json:"url" binding:"required"`
}

// Delete handles DELETE /api/upload.
func (h *UploadHandler) Delete(c *gin.Context) {
	var req deleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Delete(c.Request.Context(), req.URL); err != nil {
		h.logger.Error("upload delete failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
