package database

import (
	"gorm.io/gorm"

	"comment-pilot/internal/domain"
)

// AutoMigrate runs database migrations for all pipeline entities
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Media{},
		&domain.Comment{},
		&domain.Classification{},
		&domain.Answer{},
	); err != nil {
		return err
	}

	// At most one non-deleted answer per comment. Partial indexes are not
	// expressible through gorm tags, so it is created directly.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_comment_answers_active " +
			"ON comment_answers (comment_id) WHERE is_deleted = false",
	).Error
}
