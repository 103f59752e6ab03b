package model

import "time"

// FriendshipStatus is the lifecycle state of a friendship record.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "Pending"
	FriendshipAccepted FriendshipStatus = "Accepted"
	FriendshipDeclined FriendshipStatus = "Declined"
	FriendshipBlocked  FriendshipStatus = "Blocked"
)

// Valid reports whether s is a status the update endpoint accepts.
// Pending is set only at creation, never via update.
func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipAccepted, FriendshipDeclined, FriendshipBlocked:
		return true
	}
	return false
}

// Friendship is an ordered (sender, receiver) pair. At most one record exists
// per unordered pair; the check queries both orderings before insert.
type Friendship struct {
	ID         int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64            `gorm:"index:idx_friendship_sender;not null" json:"senderId"`
	ReceiverID int64            `gorm:"index:idx_friendship_receiver;not null" json:"receiverId"`
	Status     FriendshipStatus `gorm:"size:16;default:'Pending'" json:"status"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

// FriendID returns the other side of the pair relative to userID.
func (f *Friendship) FriendID(userID int64) int64 {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}
