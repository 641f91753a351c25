package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"comment-pilot/internal/client"
	"comment-pilot/internal/config"
	"comment-pilot/internal/database"
	"comment-pilot/internal/lock"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/service"

	"github.com/prometheus/client_golang/prometheus"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// stubPlatform satisfies client.PlatformClient without network access.
type stubPlatform struct{}

func (stubPlatform) SendReply(ctx context.Context, commentID, message string) (*client.ReplyResult, error) {
	return &client.ReplyResult{ReplyID: "stub"}, nil
}

func (stubPlatform) SetCommentHidden(ctx context.Context, commentID string, hidden bool) error {
	return nil
}

func (stubPlatform) DeleteReply(ctx context.Context, replyID string) error { return nil }

func (stubPlatform) DeleteComment(ctx context.Context, commentID string) error { return nil }

func (stubPlatform) GetMedia(ctx context.Context, mediaID string) (*client.MediaInfo, error) {
	return &client.MediaInfo{ID: mediaID, IsCommentEnabled: true}, nil
}

// stubAnalyzer satisfies ai.ImageAnalyzer.
type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeImage(ctx context.Context, imageURL, caption string) (string, error) {
	return "", nil
}

type services struct {
	ingest     service.IngestService
	moderation service.ModerationService
	media      service.MediaService
}

func buildServices(t *testing.T, db *gorm.DB) services {
	t.Helper()
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	q := queue.NewMemoryQueue()
	nop := zap.NewNop()

	commentRepo := repository.NewCommentRepository(db)
	classificationRepo := repository.NewClassificationRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	mediaRepo := repository.NewMediaRepository(db)

	media := service.NewMediaService(mediaRepo, stubPlatform{}, stubAnalyzer{}, nil, q, nop)
	ingest := service.NewIngestService(
		commentRepo, classificationRepo, answerRepo, media, q,
		config.InstagramConfig{AccountID: "acct_1", BotUsername: "bot"},
		m, nop,
	)
	moderation := service.NewModerationService(
		commentRepo, classificationRepo, answerRepo, stubPlatform{}, q,
		lock.NewMemoryLocker(), 30*time.Second, m, nop,
	)

	return services{ingest: ingest, moderation: moderation, media: media}
}
