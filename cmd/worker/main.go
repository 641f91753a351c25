package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/client"
	"comment-pilot/internal/config"
	"comment-pilot/internal/database"
	"comment-pilot/internal/job"
	"comment-pilot/internal/lock"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/ratelimit"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/service"
	"comment-pilot/internal/worker"
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

	logger.Info("Starting comment-pilot worker",
		zap.Int("concurrency", cfg.Worker.Concurrency))

	m := metrics.New()

	db, err := database.New(database.Config{
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	database.RegisterMetricsCallbacks(db, m)

	redisClient, err := database.NewRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	taskQueue := queue.NewRedisQueue(redisClient, cfg.Worker.QueuePrefix)
	locker := lock.NewRedisLocker(redisClient, cfg.Worker.QueuePrefix+":lock")
	limiter := ratelimit.NewSlidingWindowLimiter(
		redisClient, cfg.RateLimit.Key, cfg.RateLimit.Limit, cfg.RateLimit.Window())
	platform := client.NewInstagramClient(cfg.Instagram, logger, m)
	aiService := ai.NewOpenAIService(cfg.OpenAI, logger)

	var notifier client.Notifier = client.NewNoOpNotifier()
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = client.NewTelegramNotifier(cfg.Telegram, logger, m)
	}

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
	classificationService := service.NewClassificationService(
		commentRepo, classificationRepo, answerRepo, mediaRepo,
		aiService, notifier, taskQueue, cfg.Moderation, m, logger)
	answerService := service.NewAnswerService(
		commentRepo, answerRepo, aiService, taskQueue, m, logger)
	replyService := service.NewReplyService(
		commentRepo, answerRepo, platform, limiter, locker, cfg.Worker.LockTTL(), m, logger)
	moderationService := service.NewModerationService(
		commentRepo, classificationRepo, answerRepo, platform, taskQueue,
		locker, cfg.Worker.LockTTL(), m, logger)

	pool := worker.NewPool(taskQueue, cfg.Worker.Concurrency, m, logger)
	worker.RegisterPipeline(pool, classificationService, answerService, replyService, mediaService, moderationService)

	scheduler := job.NewScheduler(classificationRepo, answerRepo, taskQueue, cfg.Worker.StaleAfter(), logger)
	if err := scheduler.Start(cfg.Worker); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down worker...")
		cancel()
	}()

	pool.Run(ctx)
	scheduler.Stop()
	logger.Info("Worker exited gracefully")
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
