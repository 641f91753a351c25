package dto

// HideCommentRequest toggles a comment's hidden state on the platform
type HideCommentRequest struct {
	Hidden bool `json:"hidden"`
}

// DeleteCommentResponse reports the result of a cascading delete
type DeleteCommentResponse struct {
	CommentID    string `json:"comment_id"`
	DeletedCount int64  `json:"deleted_count"`
}

// ManualReplyRequest carries an operator-written reply for a comment
type ManualReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

// ManualReplyResponse acknowledges a queued manual reply
type ManualReplyResponse struct {
	CommentID string `json:"comment_id"`
	AnswerID  uint   `json:"answer_id"`
}

// MediaProcessingRequest toggles automated processing for a media item
type MediaProcessingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CommentStatusResponse is the moderation view of one comment's
// pipeline state
type CommentStatusResponse struct {
	CommentID            string  `json:"comment_id"`
	Username             string  `json:"username"`
	Text                 string  `json:"text"`
	IsHidden             bool    `json:"is_hidden"`
	IsDeleted            bool    `json:"is_deleted"`
	ClassificationStatus string  `json:"classification_status,omitempty"`
	Category             string  `json:"category,omitempty"`
	Confidence           int     `json:"confidence,omitempty"`
	AnswerStatus         string  `json:"answer_status,omitempty"`
	Answer               string  `json:"answer,omitempty"`
	ReplySent            bool    `json:"reply_sent"`
	ReplyID              string  `json:"reply_id,omitempty"`
	AnswerConfidence     float64 `json:"answer_confidence,omitempty"`
}
