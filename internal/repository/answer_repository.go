package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/domain"
)

// AnswerRepository defines the interface for answer data access
type AnswerRepository interface {
	// Create inserts a new answer row. A second active answer for the
	// same comment violates the partial unique index and surfaces as
	// gorm.ErrDuplicatedKey.
	Create(ctx context.Context, answer *domain.Answer) error
	FindByID(ctx context.Context, id uint) (*domain.Answer, error)
	FindActiveByCommentID(ctx context.Context, commentID string) (*domain.Answer, error)
	FindByReplyID(ctx context.Context, replyID string) (*domain.Answer, error)
	ClaimProcessing(ctx context.Context, id uint) (bool, error)
	Complete(ctx context.Context, id uint, result *ai.AnswerResult) error
	MarkRetry(ctx context.Context, id uint, retryCount int, lastError string) error
	MarkFailed(ctx context.Context, id uint, lastError string) error
	MarkReplySent(ctx context.Context, id uint, replyID string) error
	MarkReplyFailed(ctx context.Context, id uint, replyError string) error
	// SoftDeleteByCommentIDs retires the active answers of deleted
	// comments and returns how many rows it touched.
	SoftDeleteByCommentIDs(ctx context.Context, commentIDs []string) (int64, error)
	FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error)
	FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error)
}

// answerRepositoryImpl is the GORM implementation of AnswerRepository
type answerRepositoryImpl struct {
	db *gorm.DB
}

// NewAnswerRepository creates a new instance of AnswerRepository
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepositoryImpl{db: db}
}

// Create inserts a new answer row
func (r *answerRepositoryImpl) Create(ctx context.Context, answer *domain.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

// FindByID finds an answer by its row id
func (r *answerRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Answer, error) {
	var answer domain.Answer
	if err := r.db.WithContext(ctx).First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// FindActiveByCommentID finds the non-deleted answer for a comment
func (r *answerRepositoryImpl) FindActiveByCommentID(ctx context.Context, commentID string) (*domain.Answer, error) {
	var answer domain.Answer
	if err := r.db.WithContext(ctx).
		Where("comment_id = ? AND is_deleted = ?", commentID, false).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// FindByReplyID finds the answer that produced the given platform reply id
func (r *answerRepositoryImpl) FindByReplyID(ctx context.Context, replyID string) (*domain.Answer, error) {
	var answer domain.Answer
	if err := r.db.WithContext(ctx).
		Where("reply_id = ?", replyID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// ClaimProcessing transitions PENDING or RETRY to PROCESSING
func (r *answerRepositoryImpl) ClaimProcessing(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ? AND status IN ?", id,
			[]domain.ProcessingStatus{domain.StatusPending, domain.StatusRetry}).
		Updates(map[string]interface{}{
			"status":     domain.StatusProcessing,
			"started_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Complete stores the generated answer and moves the row to COMPLETED
func (r *answerRepositoryImpl) Complete(ctx context.Context, id uint, result *ai.AnswerResult) error {
	return r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ? AND status = ?", id, domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":             domain.StatusCompleted,
			"completed_at":       time.Now().UTC(),
			"answer":             result.Answer,
			"confidence":         result.Confidence,
			"quality_score":      result.QualityScore,
			"processing_time_ms": result.ProcessingTimeMs,
			"input_tokens":       result.InputTokens,
			"output_tokens":      result.OutputTokens,
			"last_error":         "",
		}).Error
}

// MarkRetry records a transient failure and schedules another attempt
func (r *answerRepositoryImpl) MarkRetry(ctx context.Context, id uint, retryCount int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      domain.StatusRetry,
			"retry_count": retryCount,
			"last_error":  lastError,
		}).Error
}

// MarkFailed moves the row to its terminal FAILED state
func (r *answerRepositoryImpl) MarkFailed(ctx context.Context, id uint, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domain.StatusFailed,
			"completed_at": time.Now().UTC(),
			"last_error":   lastError,
		}).Error
}

// MarkReplySent records the published reply. The reply_sent guard makes
// the dispatch idempotent: redelivered tasks see reply_sent = true and skip.
func (r *answerRepositoryImpl) MarkReplySent(ctx context.Context, id uint, replyID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ? AND reply_sent = ?", id, false).
		Updates(map[string]interface{}{
			"reply_sent":    true,
			"reply_sent_at": time.Now().UTC(),
			"reply_status":  domain.ReplyStatusSent,
			"reply_id":      replyID,
			"reply_error":   "",
		}).Error
}

// MarkReplyFailed records a terminal dispatch failure
func (r *answerRepositoryImpl) MarkReplyFailed(ctx context.Context, id uint, replyError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reply_status": domain.ReplyStatusFailed,
			"reply_error":  replyError,
		}).Error
}

// SoftDeleteByCommentIDs retires the active answers of deleted comments
func (r *answerRepositoryImpl) SoftDeleteByCommentIDs(ctx context.Context, commentIDs []string) (int64, error) {
	if len(commentIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&domain.Answer{}).
		Where("comment_id IN ? AND is_deleted = ?", commentIDs, false).
		Updates(map[string]interface{}{
			"is_deleted":   true,
			"reply_status": domain.ReplyStatusDeleted,
		})
	return result.RowsAffected, result.Error
}

// FindStaleProcessing finds rows stuck in PROCESSING since before olderThan
func (r *answerRepositoryImpl) FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error) {
	var rows []*domain.Answer
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", domain.StatusProcessing, olderThan).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStuckRetry finds RETRY rows whose redelivery never arrived
func (r *answerRepositoryImpl) FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error) {
	var rows []*domain.Answer
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.StatusRetry, olderThan).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
