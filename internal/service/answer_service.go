package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
)

// AnswerService drives the answer-generation state machine
type AnswerService interface {
	ProcessAnswer(ctx context.Context, answerID uint, attempt int) (*Result, error)
}

// answerServiceImpl is the implementation of AnswerService
type answerServiceImpl struct {
	commentRepo repository.CommentRepository
	answerRepo  repository.AnswerRepository
	generator   ai.AnswerGenerator
	taskQueue   queue.TaskQueue
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewAnswerService creates a new instance of AnswerService
func NewAnswerService(
	commentRepo repository.CommentRepository,
	answerRepo repository.AnswerRepository,
	generator ai.AnswerGenerator,
	taskQueue queue.TaskQueue,
	m *metrics.Metrics,
	logger *zap.Logger,
) AnswerService {
	return &answerServiceImpl{
		commentRepo: commentRepo,
		answerRepo:  answerRepo,
		generator:   generator,
		taskQueue:   taskQueue,
		metrics:     m,
		logger:      logger,
	}
}

func (s *answerServiceImpl) ProcessAnswer(ctx context.Context, answerID uint, attempt int) (*Result, error) {
	answer, err := s.answerRepo.FindByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("answer not found"), nil
		}
		return nil, err
	}
	if answer.IsDeleted {
		return skipped("answer is deleted"), nil
	}

	comment, err := s.commentRepo.FindByIDWithMedia(ctx, answer.CommentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("comment not found"), nil
		}
		return nil, err
	}
	if comment.IsDeleted {
		if err := s.answerRepo.MarkFailed(ctx, answerID, "comment was deleted"); err != nil {
			return nil, err
		}
		return skipped("comment was deleted"), nil
	}

	claimed, err := s.answerRepo.ClaimProcessing(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return skipped(fmt.Sprintf("not claimable from status %s", answer.Status)), nil
	}

	mediaContext := ""
	if comment.Media != nil {
		mediaContext = comment.Media.MediaContext
	}

	result, err := s.generator.GenerateAnswer(ctx, comment, mediaContext)
	if err != nil {
		if answer.BudgetExhausted(attempt) {
			if markErr := s.answerRepo.MarkFailed(ctx, answerID, err.Error()); markErr != nil {
				return nil, markErr
			}
			s.logger.Error("Answer generation failed permanently",
				zap.Uint("answer_id", answerID),
				zap.String("comment_id", answer.CommentID),
				zap.Error(err))
			return failed(err.Error()), nil
		}
		if markErr := s.answerRepo.MarkRetry(ctx, answerID, attempt+1, err.Error()); markErr != nil {
			return nil, markErr
		}
		s.metrics.IncrementTaskRetry(TaskGenerateAnswer)
		return retryIn(err.Error(), 0), nil
	}

	if err := s.answerRepo.Complete(ctx, answerID, result); err != nil {
		return nil, err
	}
	s.metrics.IncrementAnswerGenerated()
	s.logger.Info("Answer generated",
		zap.Uint("answer_id", answerID),
		zap.String("comment_id", answer.CommentID),
		zap.Int("quality_score", result.QualityScore))

	// Nested replies are answered for the record but never auto-posted,
	// and some platforms do not allow automated replies at all.
	if comment.IsReply() {
		return success(), nil
	}
	if comment.Media != nil && !comment.Media.Platform.SupportsAutoReply() {
		return success(), nil
	}

	task, err := queue.NewTask(TaskSendReply, AnswerTaskPayload{
		AnswerID:  answerID,
		CommentID: answer.CommentID,
	}, 0)
	if err != nil {
		return nil, err
	}
	if err := s.taskQueue.Enqueue(ctx, task, 0); err != nil {
		return nil, err
	}
	return success(), nil
}
