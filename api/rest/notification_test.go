package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aokisora/socialnet/server/model"
)

func TestListNotifications_Partitioned(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")

	require.NoError(t, db.Create(&model.Notification{ReceiverID: mina, SenderID: 2, ContentID: 10, Type: "liked your post!", Read: true}).Error)
	require.NoError(t, db.Create(&model.Notification{ReceiverID: mina, SenderID: 3, ContentID: 11, Type: "commented on your post!"}).Error)

	w := getJSON(r, fmt.Sprintf("/api/notifications?id=%d", mina), bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Read   []model.Notification `json:"readNotifs"`
		Unread []model.Notification `json:"unreadNotifs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Read, 1)
	require.Len(t, resp.Unread, 1)
	assert.EqualValues(t, 10, resp.Read[0].ContentID)
	assert.EqualValues(t, 11, resp.Unread[0].ContentID)
}

func TestListNotifications_OtherUserForbidden(t *testing.T) {
	r, _, _ := newAppRouter(t)
	_, token := signupAndLogin(t, r, "mina")
	alex, _ := signupAndLogin(t, r, "alex")

	w := getJSON(r, fmt.Sprintf("/api/notifications?id=%d", alex), bearer(token)...)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListNotifications_MissingID(t *testing.T) {
	r, _, _ := newAppRouter(t)
	_, token := signupAndLogin(t, r, "mina")

	w := getJSON(r, "/api/notifications", bearer(token)...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkNotificationsRead_REST(t *testing.T) {
	r, db, _ := newAppRouter(t)
	mina, token := signupAndLogin(t, r, "mina")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&model.Notification{
			ReceiverID: mina, SenderID: 2, ContentID: int64(i + 1), Type: "liked your post!",
		}).Error)
	}

	w := postJSON(r, "/api/notifications/mark-read", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	var unread int64
	db.Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", mina, false).
		Count(&unread)
	assert.EqualValues(t, 0, unread)
}
