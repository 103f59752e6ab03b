package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps user ids to their live push sessions. It is the only shared
// mutable in-memory structure in the server; everything else lives in the
// database. It is injected rather than global so tests can build their own.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session // userID → session
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
		logger:   logger,
	}
}

// Register inserts or overwrites the mapping for userID. Last registration
// wins: a reconnecting user displaces the prior handle without closing it,
// since the old connection's own disconnect path will clean itself up.
func (r *Registry) Register(userID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[userID]; ok {
		r.logger.Info("presence entry displaced", zap.Int64("user_id", userID))
	}
	r.sessions[userID] = s
	r.logger.Info("user registered", zap.Int64("user_id", userID))
}

// Lookup returns the session for a userID, or nil if the user is offline.
func (r *Registry) Lookup(userID int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// Unregister removes the entry holding exactly this session handle.
// Disconnects identify by handle, not user id, so this scans the map; the
// scan is O(connected users). If the user already re-registered with a newer
// handle, that entry is left in place.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, sess := range r.sessions {
		if sess == s {
			delete(r.sessions, userID)
			r.logger.Info("user unregistered", zap.Int64("user_id", userID))
			return
		}
	}
}

// IsOnline reports whether a user currently has a registered session.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Count returns the number of currently registered users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// OnlineIDs returns a snapshot of all registered user ids.
func (r *Registry) OnlineIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
