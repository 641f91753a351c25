package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/client"
	"comment-pilot/internal/config"
	"comment-pilot/internal/database"
	"comment-pilot/internal/handler"
	"comment-pilot/internal/lock"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/router"
	"comment-pilot/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting comment-pilot API",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env))

	m := metrics.New()

	db, err := database.New(database.Config{
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	database.RegisterMetricsCallbacks(db, m)

	redisClient, err := database.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	taskQueue := queue.NewRedisQueue(redisClient, cfg.Worker.QueuePrefix)
	locker := lock.NewRedisLocker(redisClient, cfg.Worker.QueuePrefix+":lock")
	platform := client.NewInstagramClient(cfg.Instagram, logger, m)
	aiService := ai.NewOpenAIService(cfg.OpenAI, logger)

	var store client.MediaStore
	if cfg.S3.Bucket != "" {
		s3Store, err := client.NewS3Store(cfg.S3)
		if err != nil {
			logger.Warn("Failed to initialize media archive store", zap.Error(err))
		} else {
			store = s3Store
		}
	}

	commentRepo := repository.NewCommentRepository(db)
	classificationRepo := repository.NewClassificationRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	mediaRepo := repository.NewMediaRepository(db)

	mediaService := service.NewMediaService(mediaRepo, platform, aiService, store, taskQueue, logger)
	ingestService := service.NewIngestService(
		commentRepo, classificationRepo, answerRepo, mediaService, taskQueue,
		cfg.Instagram, m, logger)
	moderationService := service.NewModerationService(
		commentRepo, classificationRepo, answerRepo, platform, taskQueue,
		locker, cfg.Worker.LockTTL(), m, logger)

	engine := router.Setup(cfg, router.Handlers{
		Webhook:    handler.NewWebhookHandler(ingestService, cfg.Instagram.WebhookVerifyToken, logger),
		Moderation: handler.NewModerationHandler(moderationService, mediaService, logger),
		Health:     handler.NewHealthHandler(db, redisClient),
	}, m, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("API listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down API...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("API exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}
