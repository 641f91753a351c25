package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/client"
	"comment-pilot/internal/domain"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/response"
	"comment-pilot/internal/retry"
)

// MediaService defines the interface for media business logic
type MediaService interface {
	// EnsureMedia returns the media row for id, creating it from the
	// platform's metadata the first time a comment arrives for it.
	EnsureMedia(ctx context.Context, mediaID string) (*domain.Media, error)
	// ProcessAnalysis runs the AI image-description enrichment task.
	ProcessAnalysis(ctx context.Context, mediaID string, attempt int) (*Result, error)
	SetProcessingEnabled(ctx context.Context, mediaID string, enabled bool) error
}

// mediaServiceImpl is the implementation of MediaService
type mediaServiceImpl struct {
	mediaRepo  repository.MediaRepository
	platform   client.PlatformClient
	analyzer   ai.ImageAnalyzer
	store      client.MediaStore
	taskQueue  queue.TaskQueue
	httpClient *http.Client
	logger     *zap.Logger
}

// NewMediaService creates a new instance of MediaService. store may be
// nil, in which case media snapshots are not archived.
func NewMediaService(
	mediaRepo repository.MediaRepository,
	platform client.PlatformClient,
	analyzer ai.ImageAnalyzer,
	store client.MediaStore,
	taskQueue queue.TaskQueue,
	logger *zap.Logger,
) MediaService {
	return &mediaServiceImpl{
		mediaRepo:  mediaRepo,
		platform:   platform,
		analyzer:   analyzer,
		store:      store,
		taskQueue:  taskQueue,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (s *mediaServiceImpl) EnsureMedia(ctx context.Context, mediaID string) (*domain.Media, error) {
	media, err := s.mediaRepo.FindByID(ctx, mediaID)
	if err == nil {
		return media, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	media = &domain.Media{
		ID:                  mediaID,
		Platform:            domain.PlatformInstagram,
		IsCommentEnabled:    true,
		IsProcessingEnabled: true,
		AnalysisStatus:      domain.AnalysisNone,
	}

	info, err := s.platform.GetMedia(ctx, mediaID)
	if err != nil {
		// A comment must never be dropped because the metadata fetch
		// failed; classification proceeds without post context.
		s.logger.Warn("Failed to fetch media metadata, creating bare row",
			zap.String("media_id", mediaID),
			zap.Error(err))
	} else {
		media.Caption = info.Caption
		media.MediaType = info.MediaType
		media.MediaURL = info.MediaURL
		media.Permalink = info.Permalink
		media.CommentsCount = info.CommentsCount
		media.LikeCount = info.LikeCount
		media.IsCommentEnabled = info.IsCommentEnabled
		if media.HasImageContent() && media.MediaURL != "" {
			media.AnalysisStatus = domain.AnalysisPending
		}
	}

	created, err := s.mediaRepo.CreateIfAbsent(ctx, media)
	if err != nil {
		return nil, err
	}

	if created.AnalysisStatus == domain.AnalysisPending {
		s.enqueueAnalysis(ctx, created.ID)
	}
	return created, nil
}

func (s *mediaServiceImpl) enqueueAnalysis(ctx context.Context, mediaID string) {
	task, err := queue.NewTask(TaskAnalyzeMedia, MediaTaskPayload{MediaID: mediaID}, 0)
	if err == nil {
		err = s.taskQueue.Enqueue(ctx, task, 0)
	}
	if err != nil {
		s.logger.Error("Failed to enqueue media analysis",
			zap.String("media_id", mediaID),
			zap.Error(err))
	}
}

func (s *mediaServiceImpl) ProcessAnalysis(ctx context.Context, mediaID string, attempt int) (*Result, error) {
	media, err := s.mediaRepo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("media not found"), nil
		}
		return nil, err
	}

	if media.MediaContext != "" || media.AnalysisStatus == domain.AnalysisCompleted {
		return skipped("media already analyzed"), nil
	}
	if !media.HasImageContent() || media.MediaURL == "" {
		return skipped("media has no analyzable image"), nil
	}

	description, err := s.analyzer.AnalyzeImage(ctx, media.MediaURL, media.Caption)
	if err != nil {
		if attempt >= retry.MaxRetries {
			if setErr := s.mediaRepo.SetAnalysisStatus(ctx, mediaID, domain.AnalysisFailed); setErr != nil {
				return nil, setErr
			}
			s.logger.Error("Media analysis failed permanently",
				zap.String("media_id", mediaID),
				zap.Error(err))
			return failed(fmt.Sprintf("image analysis failed: %v", err)), nil
		}
		return retryIn(fmt.Sprintf("image analysis failed: %v", err), 0), nil
	}

	if err := s.mediaRepo.UpdateContext(ctx, mediaID, description); err != nil {
		return nil, err
	}

	s.archiveSnapshot(ctx, media)

	s.logger.Info("Media analyzed",
		zap.String("media_id", mediaID),
		zap.Int("description_len", len(description)))
	return success(), nil
}

// archiveSnapshot copies the media image into the archive store so the
// description source survives CDN URL expiry. Best effort only.
func (s *mediaServiceImpl) archiveSnapshot(ctx context.Context, media *domain.Media) {
	if s.store == nil || media.ArchiveKey != "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.MediaURL, nil)
	if err != nil {
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Failed to download media for archiving",
			zap.String("media_id", media.ID),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	ext := path.Ext(media.MediaURL)
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	key := s.store.GenerateMediaKey(string(media.Platform), media.ID, ext)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if _, err := s.store.Upload(ctx, key, resp.Body, contentType); err != nil {
		s.logger.Warn("Failed to archive media snapshot",
			zap.String("media_id", media.ID),
			zap.Error(err))
		return
	}
	if err := s.mediaRepo.SetArchiveKey(ctx, media.ID, key); err != nil {
		s.logger.Warn("Failed to record archive key",
			zap.String("media_id", media.ID),
			zap.Error(err))
	}
}

func (s *mediaServiceImpl) SetProcessingEnabled(ctx context.Context, mediaID string, enabled bool) error {
	err := s.mediaRepo.SetProcessingEnabled(ctx, mediaID, enabled)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFoundError("Media not found", mediaID)
	}
	return err
}
