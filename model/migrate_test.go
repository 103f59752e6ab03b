package model_test

import (
	"testing"

	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	alice := model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := model.User{Username: "bob", Email: "bob@example.com", PasswordHash: "y"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)
	assert.NotZero(t, alice.ID)

	require.NoError(t, db.Create(&model.Friendship{
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Status:     model.FriendshipAccepted,
	}).Error)

	post := model.Post{AuthorID: alice.ID, Content: "hello world"}
	require.NoError(t, db.Create(&post).Error)

	require.NoError(t, db.Create(&model.Comment{
		AuthorID: bob.ID,
		PostID:   post.ID,
		Content:  "nice post",
	}).Error)

	require.NoError(t, db.Create(&model.Like{
		AuthorID: bob.ID,
		PostID:   &post.ID,
	}).Error)

	require.NoError(t, db.Create(&model.Notification{
		ReceiverID: alice.ID,
		SenderID:   bob.ID,
		SenderName: "bob",
		ContentID:  post.ID,
		Type:       "liked your post!",
	}).Error)

	require.NoError(t, db.Create(&model.AuditLog{
		TraceID: "trace-1",
		UserID:  &alice.ID,
		Action:  "POST /api/posts/new",
		Request: datatypes.JSON([]byte(`{"content":"hello world"}`)),
		IP:      "127.0.0.1",
	}).Error)

	var got model.User
	require.NoError(t, db.First(&got, "username = ?", "alice").Error)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "/default-profile-image.png", got.ProfilePic)

	var unread int64
	require.NoError(t, db.Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", alice.ID, false).
		Count(&unread).Error)
	assert.Equal(t, int64(1), unread)
}

func TestAutoMigrate_UniqueUsername(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.User{Username: "dup", Email: "a@example.com", PasswordHash: "x"}).Error)
	err := db.Create(&model.User{Username: "dup", Email: "b@example.com", PasswordHash: "x"}).Error
	assert.Error(t, err)
}

func TestUser_Public(t *testing.T) {
	u := model.User{ID: 3, Username: "alice", ProfilePic: "/pics/a.png", Email: "secret@example.com"}
	p := u.Public()
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "/pics/a.png", p.ProfilePic)
}

func TestFriendship_FriendID(t *testing.T) {
	f := model.Friendship{SenderID: 1, ReceiverID: 2}
	assert.Equal(t, int64(2), f.FriendID(1))
	assert.Equal(t, int64(1), f.FriendID(2))
}

func TestFriendshipStatus_Valid(t *testing.T) {
	assert.True(t, model.FriendshipAccepted.Valid())
	assert.True(t, model.FriendshipDeclined.Valid())
	assert.True(t, model.FriendshipBlocked.Valid())
	assert.False(t, model.FriendshipPending.Valid())
	assert.False(t, model.FriendshipStatus("Friends").Valid())
}
