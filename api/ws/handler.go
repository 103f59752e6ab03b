package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/aokisora/socialnet/server/cache"
	"github.com/aokisora/socialnet/server/config"
	"github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/notify"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler owns the WebSocket endpoint: authentication, upgrade, the read loop,
// and presence cleanup on disconnect.
type Handler struct {
	sec      config.SecurityConfig
	cache    cache.Cache
	registry *realtime.Registry
	notify   *notify.Service
	router   *Router
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler wires the WS endpoint and registers all message handlers.
func NewHandler(sec config.SecurityConfig, c cache.Cache, registry *realtime.Registry, n *notify.Service, logger *zap.Logger) *Handler {
	h := &Handler{
		sec:      sec,
		cache:    c,
		registry: registry,
		notify:   n,
		router:   NewRouter(logger),
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	h.registerHandlers()
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.sec.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.sec.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// ServeWS authenticates via the token query parameter, upgrades the
// connection, and runs the read loop until the client goes away.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := middleware.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	cacheCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.cache.Exists(cacheCtx, "session:"+tokenStr)
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sess := realtime.NewSession(conn, h.logger)
	// Authentication pins the connection to a user, but the client is not a
	// push target until it sends register_user.
	sess.SetIdentity(claims.UserID, "")

	h.logger.Info("ws connected", zap.Int64("user_id", claims.UserID))
	h.readPump(sess)
}

// readPump consumes messages until the connection drops, then tears down
// presence for this handle only. A newer handle registered by a reconnect
// survives the teardown.
func (h *Handler) readPump(s *realtime.Session) {
	defer h.handleDisconnect(s)

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("ws read error",
					zap.Int64("user_id", s.UserID),
					zap.Error(err))
			}
			return
		}
		s.SetReadDeadline()
		h.router.Dispatch(s, raw)
	}
}

func (h *Handler) handleDisconnect(s *realtime.Session) {
	h.registry.Unregister(s)
	s.Close()
	userID, _ := s.Identity()
	h.logger.Info("ws disconnected", zap.Int64("user_id", userID))
}
