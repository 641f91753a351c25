package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"comment-pilot/internal/domain"
)

// maxThreadDepth bounds the descendant walk so a malformed parent chain
// can never loop forever.
const maxThreadDepth = 20

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment, classification *domain.Classification) error
	FindByID(ctx context.Context, id string) (*domain.Comment, error)
	FindByIDWithMedia(ctx context.Context, id string) (*domain.Comment, error)
	Exists(ctx context.Context, id string) (bool, error)
	SetHidden(ctx context.Context, id string, hidden, byAI bool) error
	// MarkDeletedWithDescendants soft-deletes the comment and its whole
	// reply subtree in one transaction. It returns every id in the
	// subtree and how many rows were newly deleted.
	MarkDeletedWithDescendants(ctx context.Context, rootID string, byAI bool) ([]string, int64, error)
}

// commentRepositoryImpl is the GORM implementation of CommentRepository
type commentRepositoryImpl struct {
	db *gorm.DB
}

// NewCommentRepository creates a new instance of CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepositoryImpl{db: db}
}

// Create persists the comment together with its classification row so a
// comment can never exist without classification state.
func (r *commentRepositoryImpl) Create(ctx context.Context, comment *domain.Comment, classification *domain.Classification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		classification.CommentID = comment.ID
		if err := tx.Create(classification).Error; err != nil {
			return err
		}
		return nil
	})
}

// FindByID finds a comment by its platform id
func (r *commentRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// FindByIDWithMedia finds a comment with its media preloaded
func (r *commentRepositoryImpl) FindByIDWithMedia(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := r.db.WithContext(ctx).
		Preload("Media").
		First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// Exists reports whether a comment row exists for the given id
func (r *commentRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetHidden updates the hidden state of a comment
func (r *commentRepositoryImpl) SetHidden(ctx context.Context, id string, hidden, byAI bool) error {
	updates := map[string]interface{}{
		"is_hidden":    hidden,
		"hidden_by_ai": hidden && byAI,
	}
	if hidden {
		updates["hidden_at"] = time.Now().UTC()
	} else {
		updates["hidden_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkDeletedWithDescendants walks the reply tree breadth-first over
// parent_id and soft-deletes every level in one transaction. Hidden
// state is cleared on deleted rows since a deleted comment is no longer
// hidden, it is gone.
func (r *commentRepositoryImpl) MarkDeletedWithDescendants(ctx context.Context, rootID string, byAI bool) ([]string, int64, error) {
	var subtree []string
	var deleted int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := map[string]bool{rootID: true}
		frontier := []string{rootID}

		for depth := 0; len(frontier) > 0; depth++ {
			if depth >= maxThreadDepth {
				return fmt.Errorf("reply tree under comment %s exceeds depth %d", rootID, maxThreadDepth)
			}
			subtree = append(subtree, frontier...)

			var children []string
			if err := tx.Model(&domain.Comment{}).
				Where("parent_id IN ?", frontier).
				Pluck("id", &children).Error; err != nil {
				return err
			}

			next := make([]string, 0, len(children))
			for _, id := range children {
				if !seen[id] {
					seen[id] = true
					next = append(next, id)
				}
			}
			frontier = next
		}

		result := tx.Model(&domain.Comment{}).
			Where("id IN ? AND is_deleted = ?", subtree, false).
			Updates(map[string]interface{}{
				"is_deleted":    true,
				"deleted_at":    time.Now().UTC(),
				"deleted_by_ai": byAI,
				"is_hidden":     false,
				"hidden_at":     nil,
				"hidden_by_ai":  false,
			})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return subtree, deleted, nil
}
