package model

import "time"

// Like records one user liking either a post or a comment.
// Exactly one of PostID / CommentID is set.
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  int64     `gorm:"index:idx_like_author;not null" json:"authorID"`
	PostID    *int64    `gorm:"index:idx_like_post" json:"postID,omitempty"`
	CommentID *int64    `gorm:"index:idx_like_comment" json:"commentID,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
