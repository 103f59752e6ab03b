package model

import "time"

// MaxContentLength bounds post and comment bodies.
const MaxContentLength = 1000

// Post is a user-authored text post with an optional attached image.
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  int64     `gorm:"index:idx_post_author;not null" json:"authorID"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	ImageURL  string    `gorm:"size:512" json:"imageUrl,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
