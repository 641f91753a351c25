package domain

import "time"

// ProcessingStatus is the shared state set of the classification and
// answer state machines
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
	StatusRetry      ProcessingStatus = "RETRY"
)

// Classification category labels produced by the AI classifier
const (
	CategoryPositiveFeedback    = "positive feedback"
	CategoryCriticalFeedback    = "critical feedback"
	CategoryUrgentComplaint     = "urgent issue / complaint"
	CategoryQuestionInquiry     = "question / inquiry"
	CategoryPartnershipProposal = "partnership proposal"
	CategoryToxicAbusive        = "toxic / abusive"
	CategorySpamIrrelevant      = "spam / irrelevant"
)

// Classification holds the AI classification state for one comment.
// Exactly one row exists per comment; it is created together with the
// comment at ingestion and only mutated by state-machine transitions.
type Classification struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CommentID string `gorm:"type:varchar(100);uniqueIndex:uq_classifications_comment_id;not null" json:"comment_id"`

	Status      ProcessingStatus `gorm:"type:varchar(20);not null;default:PENDING;index:idx_classifications_status" json:"status"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`

	RetryCount int    `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries int    `gorm:"not null;default:5" json:"max_retries"`
	LastError  string `gorm:"type:text" json:"last_error,omitempty"`

	Type       string `gorm:"type:varchar(50)" json:"type,omitempty"`
	Confidence int    `json:"confidence"`
	Reasoning  string `gorm:"type:text" json:"reasoning,omitempty"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Classification
func (Classification) TableName() string {
	return "comment_classifications"
}

// BudgetExhausted reports whether the retry budget has been consumed
func (c *Classification) BudgetExhausted(attempt int) bool {
	return attempt >= c.MaxRetries
}
