package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/domain"
)

// ClassificationRepository defines the interface for classification data access
type ClassificationRepository interface {
	FindByCommentID(ctx context.Context, commentID string) (*domain.Classification, error)
	// ClaimProcessing transitions PENDING or RETRY to PROCESSING and
	// reports whether this caller won the claim.
	ClaimProcessing(ctx context.Context, commentID string) (bool, error)
	Complete(ctx context.Context, commentID string, result *ai.ClassificationResult) error
	MarkRetry(ctx context.Context, commentID string, retryCount int, lastError string) error
	MarkFailed(ctx context.Context, commentID string, lastError string) error
	// ResetForReprocessing puts a terminal row back to PENDING with a
	// fresh retry budget, keeping the previous verdict until overwritten.
	ResetForReprocessing(ctx context.Context, commentID string) error
	FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error)
	FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error)
}

// classificationRepositoryImpl is the GORM implementation of ClassificationRepository
type classificationRepositoryImpl struct {
	db *gorm.DB
}

// NewClassificationRepository creates a new instance of ClassificationRepository
func NewClassificationRepository(db *gorm.DB) ClassificationRepository {
	return &classificationRepositoryImpl{db: db}
}

// FindByCommentID finds the classification row for a comment
func (r *classificationRepositoryImpl) FindByCommentID(ctx context.Context, commentID string) (*domain.Classification, error) {
	var classification domain.Classification
	if err := r.db.WithContext(ctx).
		First(&classification, "comment_id = ?", commentID).Error; err != nil {
		return nil, err
	}
	return &classification, nil
}

// ClaimProcessing performs a compare-and-set on the status column so two
// workers handling a duplicate delivery cannot both process the comment.
func (r *classificationRepositoryImpl) ClaimProcessing(ctx context.Context, commentID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Classification{}).
		Where("comment_id = ? AND status IN ?", commentID,
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

// Complete stores the classifier verdict and moves the row to COMPLETED
func (r *classificationRepositoryImpl) Complete(ctx context.Context, commentID string, result *ai.ClassificationResult) error {
	return r.db.WithContext(ctx).
		Model(&domain.Classification{}).
		Where("comment_id = ? AND status = ?", commentID, domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        domain.StatusCompleted,
			"completed_at":  time.Now().UTC(),
			"type":          result.Category,
			"confidence":    result.Confidence,
			"reasoning":     result.Reasoning,
			"input_tokens":  result.InputTokens,
			"output_tokens": result.OutputTokens,
			"last_error":    "",
		}).Error
}

// MarkRetry records a transient failure and schedules another attempt
func (r *classificationRepositoryImpl) MarkRetry(ctx context.Context, commentID string, retryCount int, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Classification{}).
		Where("comment_id = ?", commentID).
		Updates(map[string]interface{}{
			"status":      domain.StatusRetry,
			"retry_count": retryCount,
			"last_error":  lastError,
		}).Error
}

// MarkFailed moves the row to its terminal FAILED state
func (r *classificationRepositoryImpl) MarkFailed(ctx context.Context, commentID string, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Classification{}).
		Where("comment_id = ?", commentID).
		Updates(map[string]interface{}{
			"status":       domain.StatusFailed,
			"completed_at": time.Now().UTC(),
			"last_error":   lastError,
		}).Error
}

// ResetForReprocessing rewinds the state machine for a redelivered comment
func (r *classificationRepositoryImpl) ResetForReprocessing(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Classification{}).
		Where("comment_id = ?", commentID).
		Updates(map[string]interface{}{
			"status":       domain.StatusPending,
			"started_at":   nil,
			"completed_at": nil,
			"retry_count":  0,
			"last_error":   "",
		}).Error
}

// FindStaleProcessing finds rows stuck in PROCESSING since before olderThan
func (r *classificationRepositoryImpl) FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error) {
	var rows []*domain.Classification
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", domain.StatusProcessing, olderThan).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStuckRetry finds RETRY rows whose redelivery never arrived
func (r *classificationRepositoryImpl) FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error) {
	var rows []*domain.Classification
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.StatusRetry, olderThan).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
