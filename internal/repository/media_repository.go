package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"comment-pilot/internal/domain"
)

// MediaRepository defines the interface for media data access
type MediaRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Media, error)
	// CreateIfAbsent inserts the media row unless one already exists.
	// It returns the row that is in the database afterwards.
	CreateIfAbsent(ctx context.Context, media *domain.Media) (*domain.Media, error)
	UpdateContext(ctx context.Context, id, description string) error
	SetAnalysisStatus(ctx context.Context, id string, status domain.AnalysisStatus) error
	SetProcessingEnabled(ctx context.Context, id string, enabled bool) error
	SetArchiveKey(ctx context.Context, id, key string) error
}

// mediaRepositoryImpl is the GORM implementation of MediaRepository
type mediaRepositoryImpl struct {
	db *gorm.DB
}

// NewMediaRepository creates a new instance of MediaRepository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepositoryImpl{db: db}
}

// FindByID finds a media item by its platform id
func (r *mediaRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Media, error) {
	var media domain.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// CreateIfAbsent inserts the row, falling back to the existing one when
// two webhook deliveries race on the same media.
func (r *mediaRepositoryImpl) CreateIfAbsent(ctx context.Context, media *domain.Media) (*domain.Media, error) {
	err := r.db.WithContext(ctx).Create(media).Error
	if err == nil {
		return media, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.FindByID(ctx, media.ID)
	}
	return nil, err
}

// UpdateContext stores the AI image description and marks analysis done
func (r *mediaRepositoryImpl) UpdateContext(ctx context.Context, id, description string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Media{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"media_context":   description,
			"analysis_status": domain.AnalysisCompleted,
		}).Error
}

// SetAnalysisStatus updates only the analysis status column
func (r *mediaRepositoryImpl) SetAnalysisStatus(ctx context.Context, id string, status domain.AnalysisStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.Media{}).
		Where("id = ?", id).
		Update("analysis_status", status).Error
}

// SetProcessingEnabled toggles automated processing for a media item
func (r *mediaRepositoryImpl) SetProcessingEnabled(ctx context.Context, id string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Media{}).
		Where("id = ?", id).
		Update("is_processing_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetArchiveKey records where the media snapshot was archived
func (r *mediaRepositoryImpl) SetArchiveKey(ctx context.Context, id, key string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Media{}).
		Where("id = ?", id).
		Update("archive_key", key).Error
}
