package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aokisora/socialnet/server/notify"
	"github.com/aokisora/socialnet/server/realtime"
	"go.uber.org/zap"
)

func (h *Handler) registerHandlers() {
	h.router.On("register_user", h.handleRegisterUser)
	h.router.On("new_like", h.handleNewLike)
	h.router.On("new_comment", h.handleNewComment)
	h.router.On("mark_notifications_read", h.handleMarkRead)
}

type registerPayload struct {
	UserID   int64  `json:"user"`
	Username string `json:"username"`
}

type eventPayload struct {
	Sender     int64  `json:"sender"`
	Receiver   int64  `json:"receiver"`
	Post       int64  `json:"post"`
	SenderName string `json:"sender_name"`
	Type       string `json:"type"`
}

type markReadPayload struct {
	UserID int64 `json:"user"`
}

// handleRegisterUser makes the session a push target and replays the unread
// backlog. The registered id must match the authenticated one; a mismatch is
// dropped rather than answered, like every other bad message on this surface.
func (h *Handler) handleRegisterUser(ctx context.Context, s *realtime.Session, raw json.RawMessage) error {
	var p registerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("register_user: %w", err)
	}
	authedID, _ := s.Identity()
	if p.UserID <= 0 || p.UserID != authedID {
		return fmt.Errorf("register_user: id %d does not match session user %d", p.UserID, authedID)
	}

	s.SetIdentity(p.UserID, p.Username)
	h.registry.Register(p.UserID, s)

	// Backlog replay is best-effort. A failed fetch leaves the user
	// registered; nothing is sent when the backlog is empty.
	unread, err := h.notify.UnreadFor(ctx, p.UserID)
	if err != nil {
		h.logger.Warn("unread backlog fetch failed",
			zap.Int64("user_id", p.UserID),
			zap.Error(err))
		return nil
	}
	if len(unread) == 0 {
		return nil
	}

	payload, err := json.Marshal(unread)
	if err != nil {
		return fmt.Errorf("register_user: marshal backlog: %w", err)
	}
	s.Send(&realtime.Packet{Type: "unread_notifications", Payload: payload})
	return nil
}

func (h *Handler) handleNewLike(ctx context.Context, s *realtime.Session, raw json.RawMessage) error {
	return h.handleEvent(ctx, s, raw, notify.KindLike, "liked your post!")
}

func (h *Handler) handleNewComment(ctx context.Context, s *realtime.Session, raw json.RawMessage) error {
	return h.handleEvent(ctx, s, raw, notify.KindComment, "commented on your post!")
}

// handleEvent adapts a raw WS payload into a fan-out event. The returned
// error only ever reaches the router's log; the sender never hears back.
func (h *Handler) handleEvent(ctx context.Context, s *realtime.Session, raw json.RawMessage, kind, defaultLabel string) error {
	var p eventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%s event: %w", kind, err)
	}

	label := p.Type
	if label == "" {
		label = defaultLabel
	}
	senderName := p.SenderName
	if senderName == "" {
		_, senderName = s.Identity()
	}

	return h.notify.HandleEvent(ctx, notify.Event{
		Kind:       kind,
		SenderID:   p.Sender,
		ReceiverID: p.Receiver,
		ContentID:  p.Post,
		SenderName: senderName,
		Label:      label,
	})
}

func (h *Handler) handleMarkRead(ctx context.Context, s *realtime.Session, raw json.RawMessage) error {
	var p markReadPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("mark_notifications_read: %w", err)
	}
	userID := p.UserID
	if userID == 0 {
		userID, _ = s.Identity()
	}
	return h.notify.MarkAllRead(ctx, userID)
}
