package model

import "time"

// Notification is created exactly once per triggering event and persisted
// before any real-time push is attempted. Only the Read flag ever mutates,
// in bulk per recipient; records are never deleted.
type Notification struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiverID int64     `gorm:"index:idx_notification_receiver;not null" json:"receiverID"`
	SenderID   int64     `gorm:"not null" json:"senderID"`
	SenderName string    `gorm:"size:32" json:"senderName"`
	ContentID  int64     `gorm:"not null" json:"contentID"`
	Type       string    `gorm:"size:64;not null" json:"type"`
	// Column is_read: READ is a reserved word in MySQL.
	Read       bool      `gorm:"column:is_read;default:false" json:"read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
