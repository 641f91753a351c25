package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/client"
	"comment-pilot/internal/domain"
	"comment-pilot/internal/dto"
	"comment-pilot/internal/lock"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/response"
)

// ModerationService covers hide, cascading delete and pipeline status
type ModerationService interface {
	SetHidden(ctx context.Context, commentID string, hidden, byAI bool) error
	// DeleteCascade soft-deletes the comment and its whole reply tree
	// after removing the root comment on the platform. Returns how many
	// rows were newly deleted; zero means the tree was already gone.
	DeleteCascade(ctx context.Context, commentID string, byAI bool) (int64, error)
	// ProcessDelete is the task-handler form of DeleteCascade used by
	// the auto-delete routing.
	ProcessDelete(ctx context.Context, commentID string, attempt int) (*Result, error)
	// SendManualReply records an operator-written answer and hands it to
	// the reply dispatcher, so manual replies share the same idempotency
	// and rate limiting as generated ones.
	SendManualReply(ctx context.Context, commentID, text string) (*domain.Answer, error)
	GetCommentStatus(ctx context.Context, commentID string) (*dto.CommentStatusResponse, error)
}

// moderationServiceImpl is the implementation of ModerationService
type moderationServiceImpl struct {
	commentRepo        repository.CommentRepository
	classificationRepo repository.ClassificationRepository
	answerRepo         repository.AnswerRepository
	platform           client.PlatformClient
	taskQueue          queue.TaskQueue
	locker             lock.Locker
	lockTTL            time.Duration
	metrics            *metrics.Metrics
	logger             *zap.Logger
}

// NewModerationService creates a new instance of ModerationService
func NewModerationService(
	commentRepo repository.CommentRepository,
	classificationRepo repository.ClassificationRepository,
	answerRepo repository.AnswerRepository,
	platform client.PlatformClient,
	taskQueue queue.TaskQueue,
	locker lock.Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) ModerationService {
	return &moderationServiceImpl{
		commentRepo:        commentRepo,
		classificationRepo: classificationRepo,
		answerRepo:         answerRepo,
		platform:           platform,
		taskQueue:          taskQueue,
		locker:             locker,
		lockTTL:            lockTTL,
		metrics:            m,
		logger:             logger,
	}
}

func (s *moderationServiceImpl) SetHidden(ctx context.Context, commentID string, hidden, byAI bool) error {
	owned, release, err := s.locker.Acquire(ctx, "hide:"+commentID, s.lockTTL)
	if err != nil {
		return err
	}
	if !owned {
		return response.NewConflictError("Moderation already in progress", commentID)
	}
	defer release()

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFoundError("Comment not found", commentID)
		}
		return err
	}
	if comment.IsDeleted {
		return response.NewValidationError("Cannot change hidden state of a deleted comment", commentID)
	}
	if comment.IsHidden == hidden {
		return nil
	}

	if err := s.platform.SetCommentHidden(ctx, commentID, hidden); err != nil {
		var permanent *client.PermanentError
		if !errors.As(err, &permanent) {
			return err
		}
		// Gone on the platform side, keep local state consistent anyway
		s.logger.Warn("Platform rejected hide request",
			zap.String("comment_id", commentID),
			zap.Error(err))
	}

	if err := s.commentRepo.SetHidden(ctx, commentID, hidden, byAI); err != nil {
		return err
	}
	s.logger.Info("Comment hidden state changed",
		zap.String("comment_id", commentID),
		zap.Bool("hidden", hidden),
		zap.Bool("by_ai", byAI))
	return nil
}

func (s *moderationServiceImpl) DeleteCascade(ctx context.Context, commentID string, byAI bool) (int64, error) {
	owned, release, err := s.locker.Acquire(ctx, "delete:"+commentID, s.lockTTL)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, response.NewConflictError("Delete already in progress", commentID)
	}
	defer release()

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, response.NewNotFoundError("Comment not found", commentID)
		}
		return 0, err
	}

	if !comment.IsDeleted {
		// Deleting the root on the platform removes its replies there
		// too, so one call covers the tree.
		if err := s.platform.DeleteComment(ctx, commentID); err != nil {
			var permanent *client.PermanentError
			if !errors.As(err, &permanent) {
				return 0, err
			}
			s.logger.Warn("Comment already gone on platform",
				zap.String("comment_id", commentID),
				zap.Error(err))
		}
	}

	subtree, deleted, err := s.commentRepo.MarkDeletedWithDescendants(ctx, commentID, byAI)
	if err != nil {
		return 0, err
	}

	retired, err := s.answerRepo.SoftDeleteByCommentIDs(ctx, subtree)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.metrics.AddCommentsDeleted(int(deleted))
	}
	s.logger.Info("Comment tree deleted",
		zap.String("comment_id", commentID),
		zap.Int64("comments_deleted", deleted),
		zap.Int64("answers_retired", retired),
		zap.Bool("by_ai", byAI))
	return deleted, nil
}

func (s *moderationServiceImpl) ProcessDelete(ctx context.Context, commentID string, attempt int) (*Result, error) {
	deleted, err := s.DeleteCascade(ctx, commentID, true)
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case response.ErrCodeNotFound:
				return skipped("comment not found"), nil
			case response.ErrCodeConflict:
				return skipped("delete already in progress"), nil
			}
		}
		var transient *client.TransientError
		var rateLimited *client.RateLimitedError
		if errors.As(err, &transient) || errors.As(err, &rateLimited) {
			s.metrics.IncrementTaskRetry(TaskDeleteComment)
			return retryIn(err.Error(), 0), nil
		}
		return nil, err
	}
	if deleted == 0 {
		return skipped("already deleted"), nil
	}
	return success(), nil
}

func (s *moderationServiceImpl) SendManualReply(ctx context.Context, commentID, text string) (*domain.Answer, error) {
	comment, err := s.commentRepo.FindByIDWithMedia(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFoundError("Comment not found", commentID)
		}
		return nil, err
	}
	if comment.IsDeleted {
		return nil, response.NewValidationError("Cannot reply to a deleted comment", commentID)
	}
	if comment.Media != nil && !comment.Media.Platform.SupportsAutoReply() {
		return nil, response.NewValidationError("Platform does not support replies", string(comment.Media.Platform))
	}

	now := time.Now()
	answer := &domain.Answer{
		CommentID:     commentID,
		Status:        domain.StatusCompleted,
		CompletedAt:   &now,
		Answer:        text,
		IsAIGenerated: false,
		MaxRetries:    5,
	}
	if err := s.answerRepo.Create(ctx, answer); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// An active answer holds the slot: retire it and its published
		// reply, then take its place.
		if err := s.retireActiveAnswer(ctx, commentID); err != nil {
			return nil, err
		}
		if err := s.answerRepo.Create(ctx, answer); err != nil {
			return nil, err
		}
	}

	task, err := queue.NewTask(TaskSendReply, AnswerTaskPayload{
		AnswerID:  answer.ID,
		CommentID: commentID,
	}, 0)
	if err != nil {
		return nil, err
	}
	if err := s.taskQueue.Enqueue(ctx, task, 0); err != nil {
		return nil, err
	}

	s.logger.Info("Manual reply queued",
		zap.String("comment_id", commentID),
		zap.Uint("answer_id", answer.ID))
	return answer, nil
}

// retireActiveAnswer removes the comment's published bot reply from the
// platform and soft-deletes its answer row, freeing the active slot for a
// replacement.
func (s *moderationServiceImpl) retireActiveAnswer(ctx context.Context, commentID string) error {
	previous, err := s.answerRepo.FindActiveByCommentID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if previous.ReplySent && previous.ReplyID != "" {
		if err := s.platform.DeleteReply(ctx, previous.ReplyID); err != nil {
			var permanent *client.PermanentError
			if !errors.As(err, &permanent) {
				return err
			}
			s.logger.Warn("Previous reply already gone on platform",
				zap.String("reply_id", previous.ReplyID),
				zap.Error(err))
		}
	}

	if _, err := s.answerRepo.SoftDeleteByCommentIDs(ctx, []string{commentID}); err != nil {
		return err
	}
	s.logger.Info("Previous answer retired",
		zap.String("comment_id", commentID),
		zap.Uint("answer_id", previous.ID))
	return nil
}

func (s *moderationServiceImpl) GetCommentStatus(ctx context.Context, commentID string) (*dto.CommentStatusResponse, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFoundError("Comment not found", commentID)
		}
		return nil, err
	}

	status := &dto.CommentStatusResponse{
		CommentID: comment.ID,
		Username:  comment.Username,
		Text:      comment.Text,
		IsHidden:  comment.IsHidden,
		IsDeleted: comment.IsDeleted,
	}

	if classification, err := s.classificationRepo.FindByCommentID(ctx, commentID); err == nil {
		status.ClassificationStatus = string(classification.Status)
		status.Category = classification.Type
		status.Confidence = classification.Confidence
	}
	if answer, err := s.answerRepo.FindActiveByCommentID(ctx, commentID); err == nil {
		status.AnswerStatus = string(answer.Status)
		status.Answer = answer.Answer
		status.ReplySent = answer.ReplySent
		status.ReplyID = answer.ReplyID
		status.AnswerConfidence = answer.Confidence
	}
	return status, nil
}
