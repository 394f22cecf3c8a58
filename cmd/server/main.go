package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/task-manager-api/internal/auth"
	"github.com/ayush/task-manager-api/internal/config"
	"github.com/ayush/task-manager-api/internal/logger"
	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/notify"
	"github.com/ayush/task-manager-api/internal/server"
	"github.com/ayush/task-manager-api/internal/store"
	"github.com/ayush/task-manager-api/internal/store/memory"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

// backend is what both store implementations provide.
type backend interface {
	users.UserStore
	users.TaskRemover
	users.AvatarStore
	tasks.TaskStore
	middleware.UserFinder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		logger.Init("info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	// ── Store ────────────────────────────────────────────────
	var st backend
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory store, data is lost on exit")
		st = memory.New()
	default:
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoClient, err := mongo.Connect(connCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			cancel()
			log.Fatal().Err(err).Msg("mongo connect")
		}
		defer mongoClient.Disconnect(ctx)

		mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
		if err := mongoStore.Ping(connCtx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("mongo ping")
		}
		if err := mongoStore.EnsureIndexes(connCtx); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("mongo indexes")
		}
		cancel()
		st = mongoStore
	}

	// ── Avatars ──────────────────────────────────────────────
	var avatars users.AvatarStore = st
	if cfg.AvatarBackend == config.BackendMinio {
		minioStore, err := store.NewMinioStore(ctx, store.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("minio connect")
		}
		avatars = minioStore
	}

	// ── Login limiter ────────────────────────────────────────
	var limiter users.LoginLimiter
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect")
		}
		defer rdb.Close()
		limiter = auth.NewLoginLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	// ── Mail ─────────────────────────────────────────────────
	var sender notify.Sender = notify.LogSender{}
	if cfg.SendGridAPIKey != "" {
		sender = notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom)
	}
	notifier := notify.New(sender)

	// ── Services ─────────────────────────────────────────────
	tokens := auth.NewTokenService(cfg.JWTSecret)
	userSvc := users.NewService(users.Deps{
		Users:    st,
		Tasks:    st,
		Avatars:  avatars,
		Hasher:   auth.NewHasher(cfg.BcryptCost),
		Tokens:   tokens,
		Notifier: notifier,
		Limiter:  limiter,
	})
	taskSvc := tasks.NewService(st)

	r := server.NewRouter(server.Options{
		Logger:      log.Logger,
		CORSOrigins: cfg.CORSOrigins,
		Tokens:      tokens,
		Users:       st,
		UserHandler: users.NewHandler(userSvc),
		TaskHandler: tasks.NewHandler(taskSvc),
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Str("avatars", cfg.AvatarBackend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	notifier.Wait()
}
