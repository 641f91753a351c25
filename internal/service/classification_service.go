package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/client"
	"comment-pilot/internal/config"
	"comment-pilot/internal/domain"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/queue"
	"comment-pilot/internal/repository"
)

// Category routing sets. A category can appear in more than one set.
var (
	answerCategories = map[string]bool{
		domain.CategoryQuestionInquiry: true,
	}
	deleteCategories = map[string]bool{
		domain.CategoryUrgentComplaint:  true,
		domain.CategoryToxicAbusive:     true,
		domain.CategoryCriticalFeedback: true,
	}
	notifyCategories = map[string]bool{
		domain.CategoryUrgentComplaint:     true,
		domain.CategoryCriticalFeedback:    true,
		domain.CategoryPartnershipProposal: true,
	}
)

// ClassificationService drives the classification state machine
type ClassificationService interface {
	ProcessClassification(ctx context.Context, commentID string, attempt int) (*Result, error)
}

// classificationServiceImpl is the implementation of ClassificationService
type classificationServiceImpl struct {
	commentRepo        repository.CommentRepository
	classificationRepo repository.ClassificationRepository
	answerRepo         repository.AnswerRepository
	mediaRepo          repository.MediaRepository
	classifier         ai.Classifier
	notifier           client.Notifier
	taskQueue          queue.TaskQueue
	moderation         config.ModerationConfig
	metrics            *metrics.Metrics
	logger             *zap.Logger
}

// NewClassificationService creates a new instance of ClassificationService
func NewClassificationService(
	commentRepo repository.CommentRepository,
	classificationRepo repository.ClassificationRepository,
	answerRepo repository.AnswerRepository,
	mediaRepo repository.MediaRepository,
	classifier ai.Classifier,
	notifier client.Notifier,
	taskQueue queue.TaskQueue,
	moderation config.ModerationConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) ClassificationService {
	return &classificationServiceImpl{
		commentRepo:        commentRepo,
		classificationRepo: classificationRepo,
		answerRepo:         answerRepo,
		mediaRepo:          mediaRepo,
		classifier:         classifier,
		notifier:           notifier,
		taskQueue:          taskQueue,
		moderation:         moderation,
		metrics:            m,
		logger:             logger,
	}
}

func (s *classificationServiceImpl) ProcessClassification(ctx context.Context, commentID string, attempt int) (*Result, error) {
	comment, err := s.commentRepo.FindByIDWithMedia(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Classification task for missing comment", zap.String("comment_id", commentID))
			return skipped("comment not found"), nil
		}
		return nil, err
	}
	if comment.IsDeleted {
		return skipped("comment is deleted"), nil
	}

	classification, err := s.classificationRepo.FindByCommentID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("no classification row"), nil
		}
		return nil, err
	}

	claimed, err := s.classificationRepo.ClaimProcessing(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return skipped(fmt.Sprintf("not claimable from status %s", classification.Status)), nil
	}

	// Gate on the image description: classifying a comment on an image
	// post without the description wastes the verdict, so poll instead.
	if comment.Media != nil && comment.Media.AwaitingAnalysis() {
		return s.deferForAnalysis(ctx, comment, classification, attempt)
	}

	mediaContext := ""
	if comment.Media != nil {
		mediaContext = comment.Media.MediaContext
	}

	result, err := s.classifier.Classify(ctx, comment, mediaContext)
	if err != nil {
		return s.handleClassifierFailure(ctx, commentID, classification, attempt, err)
	}

	if err := s.classificationRepo.Complete(ctx, commentID, result); err != nil {
		return nil, err
	}
	s.metrics.IncrementClassification(result.Category)
	s.logger.Info("Comment classified",
		zap.String("comment_id", commentID),
		zap.String("category", result.Category),
		zap.Int("confidence", result.Confidence))

	if err := s.routeByCategory(ctx, comment, result); err != nil {
		return nil, err
	}
	return success(), nil
}

// deferForAnalysis parks the row in RETRY until the media description
// arrives. The poll counts against the normal retry budget so a stuck
// analysis cannot defer forever.
func (s *classificationServiceImpl) deferForAnalysis(ctx context.Context, comment *domain.Comment, classification *domain.Classification, attempt int) (*Result, error) {
	media := comment.Media
	if media.AnalysisStatus == domain.AnalysisNone {
		if err := s.mediaRepo.SetAnalysisStatus(ctx, media.ID, domain.AnalysisPending); err != nil {
			return nil, err
		}
		task, err := queue.NewTask(TaskAnalyzeMedia, MediaTaskPayload{MediaID: media.ID}, 0)
		if err != nil {
			return nil, err
		}
		if err := s.taskQueue.Enqueue(ctx, task, 0); err != nil {
			return nil, err
		}
	}

	if classification.BudgetExhausted(attempt) {
		if err := s.classificationRepo.MarkFailed(ctx, comment.ID, "media analysis never completed"); err != nil {
			return nil, err
		}
		return failed("media analysis never completed"), nil
	}
	if err := s.classificationRepo.MarkRetry(ctx, comment.ID, attempt+1, "awaiting media analysis"); err != nil {
		return nil, err
	}
	s.metrics.IncrementTaskRetry(TaskClassifyComment)
	return retryIn("awaiting media analysis", 0), nil
}

func (s *classificationServiceImpl) handleClassifierFailure(ctx context.Context, commentID string, classification *domain.Classification, attempt int, cause error) (*Result, error) {
	if classification.BudgetExhausted(attempt) {
		if err := s.classificationRepo.MarkFailed(ctx, commentID, cause.Error()); err != nil {
			return nil, err
		}
		s.logger.Error("Classification failed permanently",
			zap.String("comment_id", commentID),
			zap.Int("attempts", attempt),
			zap.Error(cause))
		return failed(cause.Error()), nil
	}
	retryCount := attempt + 1

	if err := s.classificationRepo.MarkRetry(ctx, commentID, retryCount, cause.Error()); err != nil {
		return nil, err
	}
	s.metrics.IncrementTaskRetry(TaskClassifyComment)
	s.logger.Warn("Classification attempt failed, will retry",
		zap.String("comment_id", commentID),
		zap.Int("retry_count", retryCount),
		zap.Error(cause))
	return retryIn(cause.Error(), 0), nil
}

// routeByCategory fans the verdict out to answer generation, moderation
// and operator notification.
func (s *classificationServiceImpl) routeByCategory(ctx context.Context, comment *domain.Comment, result *ai.ClassificationResult) error {
	if answerCategories[result.Category] {
		if err := s.startAnswer(ctx, comment); err != nil {
			return err
		}
	}

	if deleteCategories[result.Category] && s.moderation.AutoDelete {
		task, err := queue.NewTask(TaskDeleteComment, CommentTaskPayload{CommentID: comment.ID}, 0)
		if err != nil {
			return err
		}
		if err := s.taskQueue.Enqueue(ctx, task, 0); err != nil {
			return err
		}
	}

	if notifyCategories[result.Category] && s.moderation.Notify {
		text := fmt.Sprintf("[%s] @%s: %s", result.Category, comment.Username, comment.Text)
		// Notification failures never block the pipeline
		if err := s.notifier.Notify(ctx, text); err != nil {
			s.logger.Warn("Operator notification failed",
				zap.String("comment_id", comment.ID),
				zap.Error(err))
		}
	}
	return nil
}

// startAnswer creates the answer row lazily and enqueues generation.
// Losing the creation race to a concurrent worker is fine: the winner's
// task will drive the row.
func (s *classificationServiceImpl) startAnswer(ctx context.Context, comment *domain.Comment) error {
	answer := &domain.Answer{
		CommentID:  comment.ID,
		MaxRetries: 5,
	}
	if err := s.answerRepo.Create(ctx, answer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Info("Answer already exists for comment", zap.String("comment_id", comment.ID))
			return nil
		}
		return err
	}

	task, err := queue.NewTask(TaskGenerateAnswer, AnswerTaskPayload{
		AnswerID:  answer.ID,
		CommentID: comment.ID,
	}, 0)
	if err != nil {
		return err
	}
	return s.taskQueue.Enqueue(ctx, task, 0)
}
