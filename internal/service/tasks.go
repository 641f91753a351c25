package service

import "time"

// Task names registered with the worker pool
const (
	TaskClassifyComment = "classify_comment"
	TaskGenerateAnswer  = "generate_answer"
	TaskSendReply       = "send_reply"
	TaskAnalyzeMedia    = "analyze_media"
	TaskDeleteComment   = "delete_comment"
)

// CommentTaskPayload is the payload of comment-scoped tasks
type CommentTaskPayload struct {
	CommentID string `json:"comment_id"`
}

// AnswerTaskPayload is the payload of answer-scoped tasks
type AnswerTaskPayload struct {
	AnswerID  uint   `json:"answer_id"`
	CommentID string `json:"comment_id"`
}

// MediaTaskPayload is the payload of media-scoped tasks
type MediaTaskPayload struct {
	MediaID string `json:"media_id"`
}

// Outcome classifies how one unit of work ended. Business outcomes are
// values, never errors: only unexpected failures propagate as errors.
type Outcome string

const (
	// OutcomeSuccess: the work completed and advanced the pipeline
	OutcomeSuccess Outcome = "success"
	// OutcomeSkipped: nothing to do (already done, guarded, or gone)
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRetry: a transient condition, the task must be redelivered
	OutcomeRetry Outcome = "retry"
	// OutcomeFailed: terminal failure, no further deliveries
	OutcomeFailed Outcome = "failed"
)

// Result is returned by every task-processing service method.
type Result struct {
	Outcome Outcome
	Reason  string
	// RetryAfter is a minimum redelivery delay hint for OutcomeRetry;
	// the worker never schedules sooner than this.
	RetryAfter time.Duration
}

func success() *Result {
	return &Result{Outcome: OutcomeSuccess}
}

func skipped(reason string) *Result {
	return &Result{Outcome: OutcomeSkipped, Reason: reason}
}

func retryIn(reason string, after time.Duration) *Result {
	return &Result{Outcome: OutcomeRetry, Reason: reason, RetryAfter: after}
}

func failed(reason string) *Result {
	return &Result{Outcome: OutcomeFailed, Reason: reason}
}
