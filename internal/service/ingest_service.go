package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"comment-pilot/internal/config"
	"comment-pilot/internal/domain"
	"comment-pilot/internal/dto"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/response"
)

// Ingest outcome labels
const (
	IngestCreated        = "created"
	IngestExists         = "exists"
	IngestSkippedOwn     = "skipped: own comment"
	IngestSkippedReplyTo = "skipped: reply to bot comment"
	IngestSkippedEcho    = "skipped: comment is a bot reply"
	IngestSkippedPaused  = "skipped: processing disabled for media"
)

// IngestResult reports what happened to one webhook comment
type IngestResult struct {
	Outcome   string
	CommentID string
}

// IngestService defines the interface for webhook comment ingestion
type IngestService interface {
	// IngestComment validates and persists one webhook comment.
	// accountID is the owning-account id from the webhook entry.
	IngestComment(ctx context.Context, accountID string, value *dto.CommentValue) (*IngestResult, error)
}

// ingestServiceImpl is the implementation of IngestService
type ingestServiceImpl struct {
	commentRepo        repository.CommentRepository
	classificationRepo repository.ClassificationRepository
	answerRepo         repository.AnswerRepository
	mediaService       MediaService
	taskQueue          queue.TaskQueue
	instagram          config.InstagramConfig
	metrics            *metrics.Metrics
	logger             *zap.Logger
}

// NewIngestService creates a new instance of IngestService
func NewIngestService(
	commentRepo repository.CommentRepository,
	classificationRepo repository.ClassificationRepository,
	answerRepo repository.AnswerRepository,
	mediaService MediaService,
	taskQueue queue.TaskQueue,
	instagram config.InstagramConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) IngestService {
	return &ingestServiceImpl{
		commentRepo:        commentRepo,
		classificationRepo: classificationRepo,
		answerRepo:         answerRepo,
		mediaService:       mediaService,
		taskQueue:          taskQueue,
		instagram:          instagram,
		metrics:            m,
		logger:             logger,
	}
}

func (s *ingestServiceImpl) IngestComment(ctx context.Context, accountID string, value *dto.CommentValue) (*IngestResult, error) {
	if accountID != s.instagram.AccountID {
		return nil, response.NewForbiddenError("Webhook entry does not belong to the configured account", accountID)
	}
	if value.ID == "" || value.Media.ID == "" {
		return nil, response.NewValidationError("Comment id and media id are required", "")
	}

	if outcome := s.checkBotLoop(ctx, value); outcome != "" {
		s.logger.Info("Comment skipped by bot-loop guard",
			zap.String("comment_id", value.ID),
			zap.String("reason", outcome))
		s.metrics.IncrementCommentIngested("skipped")
		return &IngestResult{Outcome: outcome, CommentID: value.ID}, nil
	}

	exists, err := s.commentRepo.Exists(ctx, value.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.handleExisting(ctx, value.ID)
	}

	media, err := s.mediaService.EnsureMedia(ctx, value.Media.ID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:        value.ID,
		MediaID:   value.Media.ID,
		UserID:    value.From.ID,
		Username:  value.From.Username,
		Text:      value.Text,
		CreatedAt: time.Now().UTC(),
	}
	if value.ParentID != "" {
		parentID := value.ParentID
		comment.ParentID = &parentID
	}
	comment.ConversationID = s.deriveConversationID(ctx, comment)
	if raw, err := json.Marshal(value); err == nil {
		comment.RawData = datatypes.JSON(raw)
	}

	classification := &domain.Classification{MaxRetries: 5}
	if err := s.commentRepo.Create(ctx, comment, classification); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race to a duplicate delivery
			return s.handleExisting(ctx, value.ID)
		}
		return nil, err
	}

	if !media.IsProcessingEnabled {
		s.metrics.IncrementCommentIngested("paused")
		return &IngestResult{Outcome: IngestSkippedPaused, CommentID: value.ID}, nil
	}

	if err := s.enqueueClassification(ctx, value.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Comment ingested",
		zap.String("comment_id", value.ID),
		zap.String("media_id", value.Media.ID),
		zap.Bool("is_reply", comment.IsReply()))
	s.metrics.IncrementCommentIngested("created")
	return &IngestResult{Outcome: IngestCreated, CommentID: value.ID}, nil
}

// checkBotLoop returns a skip outcome when the comment originates from
// the bot itself, directly or one hop removed.
func (s *ingestServiceImpl) checkBotLoop(ctx context.Context, value *dto.CommentValue) string {
	if value.From.Username != "" && value.From.Username == s.instagram.BotUsername {
		return IngestSkippedOwn
	}
	// The comment id itself is a reply the bot already posted
	if _, err := s.answerRepo.FindByReplyID(ctx, value.ID); err == nil {
		return IngestSkippedEcho
	}
	// The comment answers a reply the bot posted
	if value.ParentID != "" {
		if _, err := s.answerRepo.FindByReplyID(ctx, value.ParentID); err == nil {
			return IngestSkippedReplyTo
		}
	}
	return ""
}

// handleExisting resolves a duplicate delivery: re-classify only when
// the earlier classification did not complete.
func (s *ingestServiceImpl) handleExisting(ctx context.Context, commentID string) (*IngestResult, error) {
	s.metrics.IncrementCommentIngested("exists")

	classification, err := s.classificationRepo.FindByCommentID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &IngestResult{Outcome: IngestExists, CommentID: commentID}, nil
		}
		return nil, err
	}

	if classification.Status != domain.StatusCompleted {
		if err := s.classificationRepo.ResetForReprocessing(ctx, commentID); err != nil {
			return nil, err
		}
		if err := s.enqueueClassification(ctx, commentID); err != nil {
			return nil, err
		}
		s.logger.Info("Redelivered comment requeued for classification",
			zap.String("comment_id", commentID),
			zap.String("previous_status", string(classification.Status)))
	}
	return &IngestResult{Outcome: IngestExists, CommentID: commentID}, nil
}

// deriveConversationID makes a reply share its thread root's AI context.
func (s *ingestServiceImpl) deriveConversationID(ctx context.Context, comment *domain.Comment) string {
	if !comment.IsReply() {
		return "first_question_comment_" + comment.ID
	}
	parent, err := s.commentRepo.FindByID(ctx, *comment.ParentID)
	if err == nil && parent.ConversationID != "" {
		return parent.ConversationID
	}
	// Parent never passed through ingestion: treat it as the root
	return "first_question_comment_" + *comment.ParentID
}

func (s *ingestServiceImpl) enqueueClassification(ctx context.Context, commentID string) error {
	task, err := queue.NewTask(TaskClassifyComment, CommentTaskPayload{CommentID: commentID}, 0)
	if err != nil {
		return err
	}
	return s.taskQueue.Enqueue(ctx, task, 0)
}
