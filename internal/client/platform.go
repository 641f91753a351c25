package client

import (
	"context"
	"fmt"
	"time"
)

// ReplyResult carries the platform-assigned id of a published reply.
type ReplyResult struct {
	ReplyID string
}

// MediaInfo is the platform's view of a post, fetched lazily when a
// comment arrives for a media we have not seen yet.
type MediaInfo struct {
	ID               string
	Caption          string
	MediaType        string
	MediaURL         string
	Permalink        string
	CommentsCount    int
	LikeCount        int
	IsCommentEnabled bool
}

// PlatformClient is the outbound API surface towards the social platform.
type PlatformClient interface {
	SendReply(ctx context.Context, commentID, message string) (*ReplyResult, error)
	// DeleteReply removes a previously published bot reply, used when a
	// replacement answer retires it.
	DeleteReply(ctx context.Context, replyID string) error
	SetCommentHidden(ctx context.Context, commentID string, hidden bool) error
	DeleteComment(ctx context.Context, commentID string) error
	GetMedia(ctx context.Context, mediaID string) (*MediaInfo, error)
}

// RateLimitedError signals the platform throttled the call. RetryAfter
// is the platform's hint, zero when it gave none.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("platform rate limited, retry after %s", e.RetryAfter)
	}
	return "platform rate limited"
}

// TransientError signals a failure worth retrying: network errors,
// 5xx responses and the platform's documented transient error codes.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient platform error: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// PermanentError signals the call can never succeed as issued, for
// example replying to a deleted comment.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent platform error (code %d): %s", e.Code, e.Message)
}
