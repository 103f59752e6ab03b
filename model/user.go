package model

import "time"

// User represents a registered account.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:64;not null" json:"-"`
	Bio          string    `gorm:"size:500" json:"bio"`
	ProfilePic   string    `gorm:"size:255;default:'/default-profile-image.png'" json:"profilePic"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// PublicProfile is the author shape embedded in post/comment/like responses.
// It never carries the password hash.
type PublicProfile struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

// Public returns the embeddable profile view of a user.
func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, ProfilePic: u.ProfilePic}
}
