package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Comment represents a social-media comment ingested from a webhook.
// The primary key is the platform's own comment id, so duplicate webhook
// deliveries resolve to a unique-constraint conflict instead of a second row.
type Comment struct {
	ID             string         `gorm:"type:varchar(100);primaryKey" json:"id"`
	MediaID        string         `gorm:"type:varchar(100);not null;index:idx_comments_media_id" json:"media_id"`
	UserID         string         `gorm:"type:varchar(100);not null" json:"user_id"`
	Username       string         `gorm:"type:varchar(255);not null" json:"username"`
	Text           string         `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	RawData        datatypes.JSON `gorm:"type:jsonb" json:"raw_data,omitempty"`
	ParentID       *string        `gorm:"type:varchar(100);index:idx_comments_parent_id" json:"parent_id"`
	ConversationID string         `gorm:"type:varchar(120);index:idx_comments_conversation_id" json:"conversation_id"`

	IsHidden   bool       `gorm:"not null;default:false" json:"is_hidden"`
	HiddenAt   *time.Time `json:"hidden_at,omitempty"`
	HiddenByAI bool       `gorm:"not null;default:false" json:"hidden_by_ai"`

	IsDeleted   bool       `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedByAI bool       `gorm:"not null;default:false" json:"deleted_by_ai"`

	Classification *Classification `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"classification,omitempty"`
	Media          *Media          `gorm:"foreignKey:MediaID;references:ID" json:"media,omitempty"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment is nested under another comment
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}
