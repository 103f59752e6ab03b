package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/notify"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/aokisora/socialnet/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*notify.Service, *gorm.DB, *realtime.Registry) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	reg := realtime.NewRegistry(zap.NewNop())
	return notify.New(db, reg, ps, zap.NewNop()), db, reg
}

// sessionFor builds an unconnected session whose SendChan can be inspected.
func sessionFor(userID int64) *realtime.Session {
	return &realtime.Session{
		UserID:   userID,
		SendChan: make(chan []byte, 256),
		Done:     make(chan struct{}),
	}
}

func countNotifications(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Notification{}).Count(&n).Error)
	return n
}

func TestHandleEvent_InvalidInputDropped(t *testing.T) {
	svc, db, _ := newService(t)

	cases := []notify.Event{
		{Kind: notify.KindLike, SenderID: 0, ReceiverID: 1, ContentID: 101, Label: "liked your post!"},
		{Kind: notify.KindLike, SenderID: 2, ReceiverID: -1, ContentID: 101, Label: "liked your post!"},
		{Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 0, Label: "liked your post!"},
		{Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 101, Label: ""},
	}
	for _, evt := range cases {
		err := svc.HandleEvent(context.Background(), evt)
		assert.ErrorIs(t, err, notify.ErrInvalidEvent)
	}
	assert.EqualValues(t, 0, countNotifications(t, db))
}

func TestHandleEvent_SelfNotificationSuppressed(t *testing.T) {
	svc, db, reg := newService(t)
	sess := sessionFor(5)
	reg.Register(5, sess)

	err := svc.HandleEvent(context.Background(), notify.Event{
		Kind: notify.KindLike, SenderID: 5, ReceiverID: 5, ContentID: 101, Label: "liked your post!",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 0, countNotifications(t, db))
	assert.Empty(t, sess.SendChan)
}

func TestHandleEvent_OfflineRecipient_PersistsUnreadNoPush(t *testing.T) {
	svc, db, _ := newService(t)

	err := svc.HandleEvent(context.Background(), notify.Event{
		Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 101,
		SenderName: "alex", Label: "liked your post!",
	})
	require.NoError(t, err)

	var notif model.Notification
	require.NoError(t, db.First(&notif).Error)
	assert.EqualValues(t, 2, notif.SenderID)
	assert.EqualValues(t, 1, notif.ReceiverID)
	assert.EqualValues(t, 101, notif.ContentID)
	assert.Equal(t, "liked your post!", notif.Type)
	assert.False(t, notif.Read)
}

func TestHandleEvent_OnlineRecipient_PushedAndPersisted(t *testing.T) {
	svc, db, reg := newService(t)
	sess := sessionFor(1)
	reg.Register(1, sess)

	err := svc.HandleEvent(context.Background(), notify.Event{
		Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 101,
		SenderName: "alex", Label: "liked your post!",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, countNotifications(t, db))

	require.Len(t, sess.SendChan, 1)
	var pkt realtime.Packet
	require.NoError(t, json.Unmarshal(<-sess.SendChan, &pkt))
	assert.Equal(t, "like_notification", pkt.Type)

	var payload map[string]int64
	require.NoError(t, json.Unmarshal(pkt.Payload, &payload))
	assert.EqualValues(t, 2, payload["sender"])
	assert.EqualValues(t, 101, payload["post"])
}

func TestHandleEvent_SameLikeTwice_OneRecordOnePush(t *testing.T) {
	// A client following the original protocol likes over REST and then
	// announces the same like over the socket. Both land here; only the
	// first creates a record and pushes.
	svc, db, reg := newService(t)
	sess := sessionFor(1)
	reg.Register(1, sess)

	evt := notify.Event{
		Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 101,
		SenderName: "alex", Label: "liked your post!",
	}
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	assert.EqualValues(t, 1, countNotifications(t, db))
	assert.Len(t, sess.SendChan, 1)
}

func TestHandleEvent_CommentEventsNeverDeduped(t *testing.T) {
	// Two comments by the same user on the same post are two notifications.
	svc, db, _ := newService(t)

	evt := notify.Event{
		Kind: notify.KindComment, SenderID: 2, ReceiverID: 1, ContentID: 101,
		SenderName: "alex", Label: "commented on your post!",
	}
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	assert.EqualValues(t, 2, countNotifications(t, db))
}

func TestHandleEvent_CommentKind_PacketType(t *testing.T) {
	svc, _, reg := newService(t)
	sess := sessionFor(1)
	reg.Register(1, sess)

	require.NoError(t, svc.HandleEvent(context.Background(), notify.Event{
		Kind: notify.KindComment, SenderID: 3, ReceiverID: 1, ContentID: 55,
		Label: "commented on your post!",
	}))

	var pkt realtime.Packet
	require.NoError(t, json.Unmarshal(<-sess.SendChan, &pkt))
	assert.Equal(t, "comment_notification", pkt.Type)
}

func TestHandleEvent_PublishesToPubSub(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	reg := realtime.NewRegistry(zap.NewNop())
	svc := notify.New(db, reg, ps, zap.NewNop())

	msgCh, unsub, err := ps.Subscribe(context.Background(), notify.ChannelFor(1))
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, svc.HandleEvent(context.Background(), notify.Event{
		Kind: notify.KindLike, SenderID: 2, ReceiverID: 1, ContentID: 101, Label: "liked your post!",
	}))

	msg := <-msgCh
	var payload map[string]int64
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.EqualValues(t, 2, payload["sender"])
	assert.EqualValues(t, 101, payload["post"])
}

func TestListForRecipient_Partitions(t *testing.T) {
	svc, db, _ := newService(t)

	require.NoError(t, db.Create(&model.Notification{ReceiverID: 1, SenderID: 2, ContentID: 10, Type: "liked your post!", Read: true}).Error)
	require.NoError(t, db.Create(&model.Notification{ReceiverID: 1, SenderID: 3, ContentID: 11, Type: "commented on your post!"}).Error)
	require.NoError(t, db.Create(&model.Notification{ReceiverID: 9, SenderID: 2, ContentID: 12, Type: "liked your post!"}).Error)

	read, unread, err := svc.ListForRecipient(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, read, 1)
	require.Len(t, unread, 1)
	assert.EqualValues(t, 10, read[0].ContentID)
	assert.EqualValues(t, 11, unread[0].ContentID)
}

func TestListForRecipient_MissingID(t *testing.T) {
	svc, _, _ := newService(t)
	_, _, err := svc.ListForRecipient(context.Background(), 0)
	assert.ErrorIs(t, err, notify.ErrInvalidEvent)
}

func TestMarkAllRead_Idempotent(t *testing.T) {
	svc, db, _ := newService(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&model.Notification{ReceiverID: 1, SenderID: 2, ContentID: int64(i + 1), Type: "liked your post!"}).Error)
	}

	require.NoError(t, svc.MarkAllRead(context.Background(), 1))
	_, unread, err := svc.ListForRecipient(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Second call is a no-op.
	require.NoError(t, svc.MarkAllRead(context.Background(), 1))
	read, unread, err := svc.ListForRecipient(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, read, 3)
	assert.Empty(t, unread)
}

func TestUnreadFor_Backlog(t *testing.T) {
	svc, db, _ := newService(t)

	require.NoError(t, db.Create(&model.Notification{ReceiverID: 1, SenderID: 2, ContentID: 10, Type: "liked your post!", Read: true}).Error)
	require.NoError(t, db.Create(&model.Notification{ReceiverID: 1, SenderID: 3, ContentID: 11, Type: "liked your post!"}).Error)

	unread, err := svc.UnreadFor(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.EqualValues(t, 11, unread[0].ContentID)
}
