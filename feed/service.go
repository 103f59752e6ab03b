package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aokisora/socialnet/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoFriends signals that a user has no accepted friendships at all.
// Callers must be able to tell this apart from friends who simply have not
// posted anything, which yields an empty feed instead.
var ErrNoFriends = errors.New("feed: no accepted friendships")

// Service assembles a reverse-chronological timeline from the posts of a
// user's accepted friends.
type Service struct {
	db           *gorm.DB
	logger       *zap.Logger
	fetchTimeout time.Duration
	fetch        func(ctx context.Context, authorID int64) ([]model.Post, error)
}

// New creates a feed Service. fetchTimeout bounds each per-friend post fetch;
// zero disables the deadline.
func New(db *gorm.DB, logger *zap.Logger, fetchTimeout time.Duration) *Service {
	s := &Service{db: db, logger: logger, fetchTimeout: fetchTimeout}
	s.fetch = s.postsByAuthor
	return s
}

// Generate builds the merged feed for userID.
//
// The friendship lookup is the only failure that aborts the whole feed. Each
// friend's posts are fetched concurrently; a failed fetch contributes an
// empty slice and the rest of the feed still assembles. Results are sorted by
// creation time descending, ties broken by descending post id so the order is
// deterministic regardless of fetch completion order.
func (s *Service) Generate(ctx context.Context, userID int64) ([]model.Post, error) {
	friendIDs, err := s.acceptedFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friendIDs) == 0 {
		return nil, ErrNoFriends
	}

	perFriend := make([][]model.Post, len(friendIDs))
	var wg sync.WaitGroup
	for i, friendID := range friendIDs {
		wg.Add(1)
		go func(slot int, id int64) {
			defer wg.Done()
			fctx := ctx
			if s.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
				defer cancel()
			}
			posts, err := s.fetch(fctx, id)
			if err != nil {
				s.logger.Warn("friend post fetch failed, skipping",
					zap.Int64("user_id", userID),
					zap.Int64("friend_id", id),
					zap.Error(err))
				return
			}
			perFriend[slot] = posts
		}(i, friendID)
	}
	wg.Wait()

	merged := make([]model.Post, 0)
	for _, posts := range perFriend {
		merged = append(merged, posts...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID > merged[j].ID
	})

	return merged, nil
}

// acceptedFriendIDs resolves the ids on the far side of every accepted
// friendship involving userID.
func (s *Service) acceptedFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	var friendships []model.Friendship
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, model.FriendshipAccepted).
		Find(&friendships).Error; err != nil {
		return nil, fmt.Errorf("feed: friendship lookup: %w", err)
	}

	ids := make([]int64, 0, len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.FriendID(userID))
	}
	return ids, nil
}

func (s *Service) postsByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	var posts []model.Post
	if err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
