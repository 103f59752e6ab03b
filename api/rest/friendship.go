package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/model"
)

// FriendshipHandler handles friendship REST endpoints.
type FriendshipHandler struct {
	db *gorm.DB
}

// NewFriendshipHandler creates a new FriendshipHandler.
func NewFriendshipHandler(db *gorm.DB) *FriendshipHandler {
	return &FriendshipHandler{db: db}
}

type newFriendshipRequest struct {
	ReceiverID int64 `json:"receiverId" binding:"required"`
}

// Create handles POST /api/friendships/new. One record per unordered pair;
// both orderings are checked before insert.
func (h *FriendshipHandler) Create(c *gin.Context) {
	var req newFriendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID := mw.GetUserID(c)
	if senderID == req.ReceiverID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
		return
	}

	var receiver model.User
	if err := h.db.First(&receiver, req.ReceiverID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	existing, err := h.findPair(senderID, req.ReceiverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "friendship already exists"})
		return
	}

	friendship := &model.Friendship{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Status:     model.FriendshipPending,
	}
	if err := h.db.Create(friendship).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
		return
	}
	c.JSON(http.StatusCreated, friendship)
}

// Status handles GET /api/friendships/status?user=. Returns the record for
// the pair (caller, user) in either orientation.
func (h *FriendshipHandler) Status(c *gin.Context) {
	otherID, err := strconv.ParseInt(c.Query("user"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
		return
	}

	friendship, err := h.findPair(mw.GetUserID(c), otherID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no friendship"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, friendship)
}

type updateFriendshipRequest struct {
	ID     int64                  `json:"id" binding:"required"`
	Status model.FriendshipStatus `json:"status" binding:"required"`
}

// Update handles PUT /api/friendships/update. Only the receiver of a request
// may change its status, and only to Accepted, Declined, or Blocked.
func (h *FriendshipHandler) Update(c *gin.Context) {
	var req updateFriendshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	var friendship model.Friendship
	if err := h.db.First(&friendship, req.ID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "friendship not found"})
		return
	}
	if friendship.ReceiverID != mw.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the receiver may respond"})
		return
	}

	if err := h.db.Model(&friendship).Update("status", req.Status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, friendship)
}

// List handles GET /api/friendships/:id, the accepted-friend list.
func (h *FriendshipHandler) List(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var friendships []model.Friendship
	if err := h.db.Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
		userID, userID, model.FriendshipAccepted).
		Find(&friendships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	friendIDs := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		friendIDs = append(friendIDs, f.FriendID(userID))
	}

	friends := make([]model.PublicProfile, 0, len(friendIDs))
	if len(friendIDs) > 0 {
		var users []model.User
		if err := h.db.Where("id IN ?", friendIDs).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		for i := range users {
			friends = append(friends, users[i].Public())
		}
	}
	c.JSON(http.StatusOK, friends)
}

// findPair looks up the friendship record between two users, either way
// around. The check-then-act in Create can race two simultaneous requests
// into a duplicate pair; that is accepted for this surface.
func (h *FriendshipHandler) findPair(a, b int64) (*model.Friendship, error) {
	var f model.Friendship
	err := h.db.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		a, b, b, a).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}
