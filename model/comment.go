package model

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  int64     `gorm:"index:idx_comment_author;not null" json:"authorID"`
	PostID    int64     `gorm:"index:idx_comment_post;not null" json:"postID"`
	Content   string    `gorm:"size:1000;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
