package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/aokisora/socialnet/server/api/rest"
	"github.com/aokisora/socialnet/server/api/sse"
	apiws "github.com/aokisora/socialnet/server/api/ws"
	"github.com/aokisora/socialnet/server/audit"
	"github.com/aokisora/socialnet/server/cache"
	"github.com/aokisora/socialnet/server/config"
	dbadapter "github.com/aokisora/socialnet/server/db"
	"github.com/aokisora/socialnet/server/feed"
	mw "github.com/aokisora/socialnet/server/middleware"
	"github.com/aokisora/socialnet/server/model"
	"github.com/aokisora/socialnet/server/notify"
	"github.com/aokisora/socialnet/server/realtime"
	"github.com/aokisora/socialnet/server/scheduler"
	"github.com/aokisora/socialnet/server/storage"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Blob storage ----
	var store storage.BlobStore
	if cfg.Storage.Bucket != "" {
		store, err = storage.NewS3Store(context.Background(), cfg.Storage)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		logger.Info("Blob storage initialized", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		logger.Warn("storage.bucket is not set; upload endpoints are disabled")
	}

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Core services ----
	registry := realtime.NewRegistry(logger)
	notifySvc := notify.New(db, registry, pubsub, logger)
	feedSvc := feed.New(db, logger, cfg.Social.FeedFetchTimeout)

	sched.AddTicker("presence_report", 5*time.Minute, func() {
		logger.Info("presence", zap.Int("online_users", registry.Count()))
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	userH := apirest.NewUserHandler(db)
	postH := apirest.NewPostHandler(db, feedSvc, cfg.Social)
	commentH := apirest.NewCommentHandler(db, cfg.Social)
	likeH := apirest.NewLikeHandler(db, notifySvc, logger)
	friendH := apirest.NewFriendshipHandler(db)
	notifH := apirest.NewNotificationHandler(notifySvc)
	adminH := apirest.NewAdminHandler(db, registry, sched, logger)

	// Mutating requests leave an audit trail; reads do not.
	auditTrail := func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		if ctx.Request.Method == http.MethodGet {
			return
		}
		var userID *int64
		if id := mw.GetUserID(ctx); id != 0 {
			userID = &id
		}
		auditSvc.Log(audit.Entry{
			TraceID:    mw.GetTraceID(ctx),
			UserID:     userID,
			Action:     ctx.Request.Method + " " + ctx.FullPath(),
			Response:   map[string]int{"status": ctx.Writer.Status()},
			IP:         ctx.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
	}

	api := r.Group("/api", auditTrail)
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		usersG := api.Group("/users")
		usersG.POST("", userH.Signup)
		usersG.GET("/:id", userH.Get)
		usersG.PUT("/:id", mw.Auth(cfg.Security, c), userH.Update)
		usersG.DELETE("/:id", mw.Auth(cfg.Security, c), userH.Delete)

		postsG := api.Group("/posts")
		postsG.Use(mw.Auth(cfg.Security, c))
		postsG.POST("/new", postH.Create)
		postsG.GET("/read", postH.Read)
		postsG.PUT("/update/:id", postH.Update)
		postsG.DELETE("/delete/:id", postH.Delete)
		postsG.GET("/feed/:id", postH.Feed)

		commentsG := api.Group("/comments")
		commentsG.Use(mw.Auth(cfg.Security, c))
		commentsG.POST("/new", commentH.Create)
		commentsG.GET("/read", commentH.Read)
		commentsG.PUT("/update/:id", commentH.Update)
		commentsG.DELETE("/delete/:id", commentH.Delete)

		likesG := api.Group("/likes")
		likesG.Use(mw.Auth(cfg.Security, c))
		likesG.POST("/new", likeH.Create)
		likesG.DELETE("/remove", likeH.Remove)
		likesG.GET("/post/:postID", likeH.ByPost)
		likesG.GET("/comment/:commentID", likeH.ByComment)
		likesG.GET("/user/:authorID", likeH.ByUser)

		friendsG := api.Group("/friendships")
		friendsG.Use(mw.Auth(cfg.Security, c))
		friendsG.POST("/new", friendH.Create)
		friendsG.GET("/status", friendH.Status)
		friendsG.PUT("/update", friendH.Update)
		friendsG.GET("/:id", friendH.List)

		notifsG := api.Group("/notifications")
		notifsG.Use(mw.Auth(cfg.Security, c))
		notifsG.GET("", notifH.List)
		notifsG.POST("/mark-read", notifH.MarkRead)

		if store != nil {
			uploadH := apirest.NewUploadHandler(store, logger)
			uploadG := api.Group("/upload")
			uploadG.Use(mw.Auth(cfg.Security, c))
			uploadG.POST("", uploadH.Upload)
			uploadG.DELETE("", uploadH.Delete)
		}

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/online", adminH.Online)
		adminG.POST("/kick/:id", adminH.Kick)
	}

	// ---- WebSocket ----
	wsH := apiws.NewHandler(cfg.Security, c, registry, notifySvc, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
