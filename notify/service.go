package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aokisora/socialnet/server/cache"
	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidEvent marks events dropped at the fan-out boundary: malformed ids
// or an empty type label. The transport adapter logs and discards these; the
// triggering action (the like or comment itself) already succeeded.
var ErrInvalidEvent = errors.New("notify: invalid event")

// Event kinds map one-to-one onto outbound packet types.
const (
	KindLike    = "like"
	KindComment = "comment"
)

// Event is one like-created or comment-created domain event.
type Event struct {
	Kind       string
	SenderID   int64
	ReceiverID int64
	ContentID  int64
	SenderName string
	Label      string // free-form type tag, e.g. "liked your post!"
}

// pushPayload is what a connected recipient receives in real time.
type pushPayload struct {
	Sender int64 `json:"sender"`
	Post   int64 `json:"post"`
}

// Service turns domain events into persisted notifications plus an optional
// real-time push. Durability always precedes delivery: the record is written
// before any push attempt, so a crash between the two loses nothing.
type Service struct {
	db       *gorm.DB
	registry *realtime.Registry
	pubsub   cache.PubSub
	logger   *zap.Logger
}

// New creates a notification Service.
func New(db *gorm.DB, registry *realtime.Registry, pubsub cache.PubSub, logger *zap.Logger) *Service {
	return &Service{db: db, registry: registry, pubsub: pubsub, logger: logger}
}

// HandleEvent validates, persists, and fans out one event.
//
// Returns ErrInvalidEvent for malformed input and a wrapped DB error when the
// insert fails. A nil return does NOT mean the recipient saw a push: offline
// recipients get nothing live and read the record later.
func (s *Service) HandleEvent(ctx context.Context, evt Event) error {
	if evt.SenderID <= 0 || evt.ReceiverID <= 0 || evt.ContentID <= 0 || evt.Label == "" {
		return fmt.Errorf("%w: sender=%d receiver=%d content=%d label=%q",
			ErrInvalidEvent, evt.SenderID, evt.ReceiverID, evt.ContentID, evt.Label)
	}

	// A user acting on their own content generates no notification.
	if evt.SenderID == evt.ReceiverID {
		return nil
	}

	// A like is unique per author and post, so the same like announced over
	// both the REST hook and the socket collapses to one record. Comments
	// have no such key: every comment event is a distinct notification.
	if evt.Kind == KindLike {
		var existing int64
		if err := s.db.WithContext(ctx).
			Model(&model.Notification{}).
			Where("receiver_id = ? AND sender_id = ? AND content_id = ? AND type = ?",
				evt.ReceiverID, evt.SenderID, evt.ContentID, evt.Label).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("notify: dedup check: %w", err)
		}
		if existing > 0 {
			return nil
		}
	}

	notif := &model.Notification{
		ReceiverID: evt.ReceiverID,
		SenderID:   evt.SenderID,
		SenderName: evt.SenderName,
		ContentID:  evt.ContentID,
		Type:       evt.Label,
		Read:       false,
	}
	if err := s.db.WithContext(ctx).Create(notif).Error; err != nil {
		return fmt.Errorf("notify: persist notification: %w", err)
	}

	s.push(ctx, evt)
	return nil
}

// push delivers the event to a connected recipient and to pub/sub
// subscribers. Best-effort: all failures are logged and swallowed.
func (s *Service) push(ctx context.Context, evt Event) {
	payload, err := json.Marshal(pushPayload{Sender: evt.SenderID, Post: evt.ContentID})
	if err != nil {
		s.logger.Error("marshal push payload", zap.Error(err))
		return
	}
	pktType := evt.Kind + "_notification"

	if sess := s.registry.Lookup(evt.ReceiverID); sess != nil {
		sess.Send(&realtime.Packet{Type: pktType, Payload: payload})
		s.logger.Debug("notification pushed",
			zap.Int64("receiver_id", evt.ReceiverID),
			zap.String("type", pktType))
	}

	if s.pubsub != nil {
		if err := s.pubsub.Publish(ctx, ChannelFor(evt.ReceiverID), string(payload)); err != nil {
			s.logger.Warn("notification publish failed",
				zap.Int64("receiver_id", evt.ReceiverID),
				zap.Error(err))
		}
	}
}

// ChannelFor returns the pub/sub channel carrying a user's notifications.
func ChannelFor(userID int64) string {
	return "notify:" + strconv.FormatInt(userID, 10)
}

// ListForRecipient partitions a recipient's notifications by the read flag,
// each partition ordered oldest first.
func (s *Service) ListForRecipient(ctx context.Context, receiverID int64) (read, unread []model.Notification, err error) {
	if receiverID <= 0 {
		return nil, nil, fmt.Errorf("%w: receiver=%d", ErrInvalidEvent, receiverID)
	}

	read = make([]model.Notification, 0)
	unread = make([]model.Notification, 0)

	if err := s.db.WithContext(ctx).
		Where("receiver_id = ? AND is_read = ?", receiverID, true).
		Order("created_at").
		Find(&read).Error; err != nil {
		return nil, nil, fmt.Errorf("notify: list read: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Order("created_at").
		Find(&unread).Error; err != nil {
		return nil, nil, fmt.Errorf("notify: list unread: %w", err)
	}
	return read, unread, nil
}

// UnreadFor returns the backlog pushed to a user on (re)registration.
func (s *Service) UnreadFor(ctx context.Context, receiverID int64) ([]model.Notification, error) {
	if receiverID <= 0 {
		return nil, fmt.Errorf("%w: receiver=%d", ErrInvalidEvent, receiverID)
	}
	var unread []model.Notification
	if err := s.db.WithContext(ctx).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Order("created_at").
		Find(&unread).Error; err != nil {
		return nil, fmt.Errorf("notify: fetch unread: %w", err)
	}
	return unread, nil
}

// MarkAllRead flips every unread notification for a recipient to read.
// Idempotent: a second call is a no-op.
func (s *Service) MarkAllRead(ctx context.Context, receiverID int64) error {
	if receiverID <= 0 {
		return fmt.Errorf("%w: receiver=%d", ErrInvalidEvent, receiverID)
	}
	if err := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("notify: mark read: %w", err)
	}
	return nil
}
