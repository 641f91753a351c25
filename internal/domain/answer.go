package domain

import "time"

// Reply status values persisted on Answer
const (
	ReplyStatusSent    = "sent"
	ReplyStatusFailed  = "failed"
	ReplyStatusDeleted = "deleted"
)

// Answer holds an AI-generated reply for one inquiry comment. At most one
// non-deleted answer exists per comment (partial unique index); replaced
// answers are soft-deleted so the history survives.
type Answer struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CommentID string `gorm:"type:varchar(100);not null;index:idx_answers_comment_id" json:"comment_id"`

	Status      ProcessingStatus `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`

	RetryCount int    `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries int    `gorm:"not null;default:5" json:"max_retries"`
	LastError  string `gorm:"type:text" json:"last_error,omitempty"`

	Answer           string  `gorm:"type:text" json:"answer,omitempty"`
	Confidence       float64 `json:"confidence"`
	QualityScore     int     `json:"quality_score"`
	ProcessingTimeMs int     `json:"processing_time_ms"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	IsAIGenerated    bool    `gorm:"not null;default:true" json:"is_ai_generated"`

	ReplySent   bool       `gorm:"not null;default:false" json:"reply_sent"`
	ReplySentAt *time.Time `json:"reply_sent_at,omitempty"`
	ReplyStatus string     `gorm:"type:varchar(50)" json:"reply_status,omitempty"`
	ReplyError  string     `gorm:"type:text" json:"reply_error,omitempty"`
	ReplyID     string     `gorm:"type:varchar(100);index:idx_answers_reply_id" json:"reply_id,omitempty"`

	IsDeleted bool `gorm:"not null;default:false" json:"is_deleted"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Answer
func (Answer) TableName() string {
	return "comment_answers"
}

// BudgetExhausted reports whether the retry budget has been consumed
func (a *Answer) BudgetExhausted(attempt int) bool {
	return attempt >= a.MaxRetries
}
