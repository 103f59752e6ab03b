package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aokisora/socialnet/server/api/rest"
	"github.com/aokisora/socialnet/server/config"
	"github.com/aokisora/socialnet/server/feed"
	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/notify"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/aokisora/socialnet/server/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newAppRouter wires the REST surface the way main.go does, on an in-memory
// DB with a local cache. The presence registry is returned so tests can fake
// online recipients.
func newAppRouter(t *testing.T) (*gin.Engine, *gorm.DB, *realtime.Registry) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTL: 72 * time.Hour}
	logger := zap.NewNop()

	registry := realtime.NewRegistry(logger)
	notifySvc := notify.New(db, registry, ps, logger)
	feedSvc := feed.New(db, logger, time.Second)

	authH := rest.NewAuthHandler(db, c, sec)
	userH := rest.NewUserHandler(db)
	postH := rest.NewPostHandler(db, feedSvc, config.SocialConfig{})
	commentH := rest.NewCommentHandler(db, config.SocialConfig{})
	likeH := rest.NewLikeHandler(db, notifySvc, logger)
	friendH := rest.NewFriendshipHandler(db)
	notifH := rest.NewNotificationHandler(notifySvc)

	r := gin.New()
	api := r.Group("/api")

	api.POST("/auth/login", authH.Login)
	api.POST("/auth/logout", mw.Auth(sec, c), authH.Logout)
	api.POST("/auth/refresh", mw.Auth(sec, c), authH.Refresh)

	api.POST("/users", userH.Signup)
	api.GET("/users/:id", userH.Get)
	api.PUT("/users/:id", mw.Auth(sec, c), userH.Update)
	api.DELETE("/users/:id", mw.Auth(sec, c), userH.Delete)

	authed := api.Group("", mw.Auth(sec, c))
	authed.POST("/posts/new", postH.Create)
	authed.GET("/posts/read", postH.Read)
	authed.PUT("/posts/update/:id", postH.Update)
	authed.DELETE("/posts/delete/:id", postH.Delete)
	authed.GET("/posts/feed/:id", postH.Feed)

	authed.POST("/comments/new", commentH.Create)
	authed.GET("/comments/read", commentH.Read)
	authed.PUT("/comments/update/:id", commentH.Update)
	authed.DELETE("/comments/delete/:id", commentH.Delete)

	authed.POST("/likes/new", likeH.Create)
	authed.DELETE("/likes/remove", likeH.Remove)
	authed.GET("/likes/post/:postID", likeH.ByPost)
	authed.GET("/likes/comment/:commentID", likeH.ByComment)
	authed.GET("/likes/user/:authorID", likeH.ByUser)

	authed.POST("/friendships/new", friendH.Create)
	authed.GET("/friendships/status", friendH.Status)
	authed.PUT("/friendships/update", friendH.Update)
	authed.GET("/friendships/:id", friendH.List)

	authed.GET("/notifications", notifH.List)
	authed.POST("/notifications/mark-read", notifH.MarkRead)

	return r, db, registry
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf.Write(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPost, path, body, headers...)
}

func putJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPut, path, body, headers...)
}

func deleteJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodDelete, path, body, headers...)
}

func getJSON(r *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodGet, path, nil, headers...)
}

// signupAndLogin registers a fresh account and returns its id and a bearer
// token. Password is always "password1".
func signupAndLogin(t *testing.T, r *gin.Engine, username string) (int64, string) {
	t.Helper()

	w := postJSON(r, "/api/users", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := int64(created["id"].(float64))

	w = postJSON(r, "/api/auth/login", map[string]string{
		"identification": username,
		"password":       "password1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return id, resp["token"].(string)
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}
