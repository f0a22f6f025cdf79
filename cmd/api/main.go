package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"trackApply/internal/account"
	"trackApply/internal/api"
	"trackApply/internal/api/middleware"
	"trackApply/internal/auth"
	"trackApply/internal/config"
	"trackApply/internal/database"
	"trackApply/internal/jobs"
	"trackApply/internal/logging"
	"trackApply/internal/storage"
	"trackApply/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.Setup(cfg.API.Env)
	slog.SetDefault(logger)
	if cfg.API.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Sign-in throttling fails open; the mail queue will report its own errors.
		logger.Warn("redis unreachable at startup", slog.Any("error", err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	authService, err := auth.NewAuthService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	deps := api.Dependencies{
		Accounts: account.NewService(
			database.NewUserStore(db),
			authService,
			tasks.NewResetMailQueue(asynqClient, middleware.CorrelationIDFromContext),
			account.Options{
				ClientURL:     cfg.API.ClientURL,
				ResetTokenTTL: cfg.Auth.ResetTokenTTL,
				Logger:        logger,
			},
		),
		Jobs: jobs.NewService(database.NewJobStore(db)),
		Limiter: api.NewRedisLoginLimiter(
			redisClient,
			cfg.Auth.LoginRateLimitPerHour,
			cfg.Auth.LoginLockThreshold,
			cfg.Auth.LoginLockTTL,
		),
	}

	if cfg.MinIO.Enabled() {
		bucket, err := storage.NewResumeBucket(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalf("init resume bucket: %v", err)
		}
		deps.Objects = bucket
		if scanner := storage.NewClamdScanner(cfg.MinIO.ClamdAddr); scanner != nil {
			deps.Scanner = scanner
		}
		logger.Info("resume attachments enabled",
			slog.String("bucket", cfg.MinIO.Bucket),
			slog.Bool("virus_scan", deps.Scanner != nil),
		)
	}

	router := api.NewRouter(cfg.API, logger)
	api.RegisterRoutes(router, deps)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
