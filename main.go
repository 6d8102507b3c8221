package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pulsewire/pulse/handlers"
	"github.com/pulsewire/pulse/internal/comments"
	"github.com/pulsewire/pulse/internal/config"
	"github.com/pulsewire/pulse/internal/database"
	"github.com/pulsewire/pulse/internal/identity"
	"github.com/pulsewire/pulse/internal/livequery"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/internal/oidc"
	"github.com/pulsewire/pulse/internal/posts"
	"github.com/pulsewire/pulse/internal/profiles"
	"github.com/pulsewire/pulse/internal/sessions"
	"github.com/pulsewire/pulse/internal/storage"
	"github.com/pulsewire/pulse/internal/tokens"
	"github.com/pulsewire/pulse/pkg/logger"
	"github.com/pulsewire/pulse/pkg/metrics"
	"github.com/pulsewire/pulse/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level is controlled with LOG_LEVEL (debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v minio=%v oidc=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "", cfg.OIDC.Issuer != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.CORS())

	ctx := context.Background()

	// Redis first: it backs the access-token blacklist, optionally refresh
	// sessions and the rate limiter.
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			sessions.SetBlacklistClient(rdb)
			logger.Infof("connected to redis at %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	// Mongo-backed repositories when configured, in-memory otherwise. The
	// in-memory path keeps local development and CI self-contained.
	var (
		identityRepo identity.Repository
		profileRepo  profiles.Repository
		postRepo     posts.Repository
		commentRepo  comments.Repository
		sessionRepo  sessions.Repository
		mongoOK      bool
	)
	hub := livequery.NewHub()
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			logger.Warnf("mongo unavailable, falling back to in-memory stores: %v", err)
		} else {
			defer func() { _ = client.Disconnect(ctx) }()
			db := client.Database(cfg.MongoDB.Database)
			identityRepo = identity.NewMongoRepository(db.Collection("credentials"))
			profileRepo = profiles.NewMongoRepository(db.Collection(models.CollectionUsers))
			postRepo = posts.NewMongoRepository(db.Collection(models.CollectionPosts))
			commentRepo = comments.NewMongoRepository(db.Collection(models.CollectionComments))
			sessionRepo = sessions.NewMongoRepository(db.Collection("sessions"))
			mongoOK = true

			// change-stream watchers observe writes that bypass this process
			livequery.WatchCollection(ctx, db.Collection(models.CollectionUsers), hub, models.CollectionUsers)
			livequery.WatchCollection(ctx, db.Collection(models.CollectionPosts), hub, models.CollectionPosts)
			livequery.WatchCollection(ctx, db.Collection(models.CollectionComments), hub, models.CollectionComments)
			logger.Infof("connected to mongo database %q", cfg.MongoDB.Database)
		}
	}
	if !mongoOK {
		identityRepo = identity.NewMemoryRepository()
		profileRepo = profiles.NewMemoryRepository()
		postRepo = posts.NewMemoryRepository()
		commentRepo = comments.NewMemoryRepository()
	}
	// prefer Redis for refresh sessions when available
	if rdb != nil {
		sessionRepo = sessions.NewRedisRepository(rdb, "session:")
	} else if sessionRepo == nil {
		logger.Warnf("no redis or mongo for sessions; refresh tokens will not survive restarts")
		sessionRepo = sessions.NewMemoryRepository()
	}

	identitySvc := identity.NewService(identityRepo, cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength)
	profilesSvc := profiles.NewService(profileRepo)
	sessionsSvc := sessions.NewService(sessionRepo)
	postsSvc := posts.NewService(postRepo, hub)
	commentsSvc := comments.NewService(commentRepo, hub)

	// attachments are optional; the upload route answers 501 without them
	var attachments *storage.AttachmentStore
	if cfg.MinIO.Endpoint != "" {
		attachments, err = storage.NewAttachmentStore(&cfg.MinIO)
		if err != nil {
			logger.Warnf("attachment store unavailable: %v", err)
			attachments = nil
		} else {
			logger.Infof("attachment store ready (bucket %q)", cfg.MinIO.Bucket)
		}
	}

	// Access tokens are verified locally. When an external OIDC issuer is
	// configured its verifier takes over; ALLOW_INSECURE_TOKEN=true swaps in
	// the claims-only parser for integration runs.
	var verifier middleware.Verifier = tokens.NewVerifier(cfg.JWT.Secret)
	if cfg.OIDC.Issuer != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			verifier = ver
		}
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure token verifier (integration mode)")
		verifier = oidc.NewInsecureVerifier()
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/readyz", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{
			"mongo":       mongoOK || cfg.MongoDB.URI == "",
			"redis":       rdb != nil || cfg.Redis.Host == "",
			"attachments": attachments != nil || cfg.MinIO.Endpoint == "",
		}
		for _, ok := range deps {
			if !ok {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	handlers.NewAuthHandler(cfg, identitySvc, profilesSvc, sessionsSvc).Register(api)

	authed := api.Group("", middleware.AuthMiddleware(verifier), handlers.SessionMiddleware(profilesSvc))
	authed.GET("/me", handlers.Me)
	handlers.NewPostsHandler(postsSvc, commentsSvc, attachments).Register(authed)
	handlers.NewCommentsHandler(commentsSvc).Register(authed)
	handlers.NewAdminHandler(postsSvc, commentsSvc).Register(authed)
	handlers.NewLiveHandler(postsSvc, commentsSvc).Register(authed)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting pulse on %s (mongo=%v redis=%v attachments=%v)", addr, mongoOK, rdb != nil, attachments != nil)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
