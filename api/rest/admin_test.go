package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aokisora/socialnet/server/api/rest"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/aokisora/socialnet/server/scheduler"
	"github.com/aokisora/socialnet/server/testutil"
)

func newAdminRouter(t *testing.T, adminKey string) (*gin.Engine, *realtime.Registry) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	registry := realtime.NewRegistry(logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	h := rest.NewAdminHandler(db, registry, sched, logger)
	r := gin.New()
	g := r.Group("/api/admin", rest.AdminAuth(adminKey))
	g.GET("/metrics", h.Metrics)
	g.GET("/online", h.Online)
	g.POST("/kick/:id", h.Kick)
	return r, registry
}

func TestAdminAuth_DisabledWithoutKey(t *testing.T) {
	r, _ := newAdminRouter(t, "")
	w := getJSON(r, "/api/admin/metrics", "X-Admin-Key", "anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminAuth_WrongKey(t *testing.T) {
	r, _ := newAdminRouter(t, "sekrit")
	w := getJSON(r, "/api/admin/metrics", "X-Admin-Key", "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMetrics(t *testing.T) {
	r, reg := newAdminRouter(t, "sekrit")
	reg.Register(1, &realtime.Session{SendChan: make(chan []byte, 1), Done: make(chan struct{})})

	w := getJSON(r, "/api/admin/metrics", "X-Admin-Key", "sekrit")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["online_users"])
}

func TestAdminOnline(t *testing.T) {
	r, reg := newAdminRouter(t, "sekrit")
	reg.Register(7, &realtime.Session{SendChan: make(chan []byte, 1), Done: make(chan struct{})})

	w := getJSON(r, "/api/admin/online", "X-Admin-Key", "sekrit")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserIDs []int64 `json:"user_ids"`
		Count   int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{7}, resp.UserIDs)
	assert.Equal(t, 1, resp.Count)
}

func TestAdminKick(t *testing.T) {
	r, reg := newAdminRouter(t, "sekrit")
	sess := &realtime.Session{SendChan: make(chan []byte, 1), Done: make(chan struct{})}
	reg.Register(7, sess)

	w := postJSON(r, "/api/admin/kick/7", nil, "X-Admin-Key", "sekrit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sess.IsClosed())
	assert.False(t, reg.IsOnline(7))

	w = postJSON(r, "/api/admin/kick/7", nil, "X-Admin-Key", "sekrit")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
