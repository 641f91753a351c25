package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/client"
	"comment-pilot/internal/lock"
	"comment-pilot/internal/metrics"
	"comment-pilot/internal/ratelimit"
	"comment-pilot/internal/repository"
	"comment-pilot/internal/retry"
)

// ReplyService posts generated answers back to the platform
type ReplyService interface {
	DispatchReply(ctx context.Context, answerID uint, attempt int) (*Result, error)
}

// replyServiceImpl is the implementation of ReplyService
type replyServiceImpl struct {
	commentRepo repository.CommentRepository
	answerRepo  repository.AnswerRepository
	platform    client.PlatformClient
	limiter     ratelimit.RateLimiter
	locker      lock.Locker
	lockTTL     time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewReplyService creates a new instance of ReplyService
func NewReplyService(
	commentRepo repository.CommentRepository,
	answerRepo repository.AnswerRepository,
	platform client.PlatformClient,
	limiter ratelimit.RateLimiter,
	locker lock.Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) ReplyService {
	return &replyServiceImpl{
		commentRepo: commentRepo,
		answerRepo:  answerRepo,
		platform:    platform,
		limiter:     limiter,
		locker:      locker,
		lockTTL:     lockTTL,
		metrics:     m,
		logger:      logger,
	}
}

func (s *replyServiceImpl) DispatchReply(ctx context.Context, answerID uint, attempt int) (*Result, error) {
	answer, err := s.answerRepo.FindByID(ctx, answerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("answer not found"), nil
		}
		return nil, err
	}

	owned, release, err := s.locker.Acquire(ctx, "reply:"+answer.CommentID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !owned {
		// Another delivery of this task is mid-flight
		return skipped("dispatch already in progress"), nil
	}
	defer release()

	// The persisted flag is the idempotency guard: a redelivered task
	// that raced the first send must not post a second reply.
	if answer.ReplySent {
		return skipped("reply already sent"), nil
	}
	if answer.IsDeleted {
		return skipped("answer is deleted"), nil
	}
	if answer.Answer == "" {
		return skipped("answer has no text"), nil
	}

	comment, err := s.commentRepo.FindByID(ctx, answer.CommentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return skipped("comment not found"), nil
		}
		return nil, err
	}
	if comment.IsDeleted {
		return skipped("comment was deleted"), nil
	}

	allowed, delay, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.metrics.IncrementReplyRateLimited()
		s.logger.Info("Reply dispatch rate limited",
			zap.String("comment_id", answer.CommentID),
			zap.Duration("delay", delay))
		return retryIn("rate limiter window full", delay), nil
	}

	result, err := s.platform.SendReply(ctx, answer.CommentID, answer.Answer)
	if err != nil {
		return s.handleSendFailure(ctx, answer.ID, answer.CommentID, attempt, err)
	}

	if err := s.answerRepo.MarkReplySent(ctx, answerID, result.ReplyID); err != nil {
		return nil, err
	}
	s.metrics.IncrementReplySent()
	s.logger.Info("Reply dispatched",
		zap.String("comment_id", answer.CommentID),
		zap.String("reply_id", result.ReplyID))
	return success(), nil
}

func (s *replyServiceImpl) handleSendFailure(ctx context.Context, answerID uint, commentID string, attempt int, cause error) (*Result, error) {
	var rateLimited *client.RateLimitedError
	if errors.As(cause, &rateLimited) {
		s.metrics.IncrementReplyRateLimited()
		return retryIn("platform rate limited", rateLimited.RetryAfter), nil
	}

	var transient *client.TransientError
	if errors.As(cause, &transient) {
		if attempt >= retry.MaxRetries {
			if err := s.answerRepo.MarkReplyFailed(ctx, answerID, cause.Error()); err != nil {
				return nil, err
			}
			return failed(fmt.Sprintf("retry budget exhausted: %v", cause)), nil
		}
		s.metrics.IncrementTaskRetry(TaskSendReply)
		return retryIn(cause.Error(), 0), nil
	}

	// Permanent platform rejection
	if err := s.answerRepo.MarkReplyFailed(ctx, answerID, cause.Error()); err != nil {
		return nil, err
	}
	s.logger.Error("Reply dispatch failed permanently",
		zap.String("comment_id", commentID),
		zap.Error(cause))
	return failed(cause.Error()), nil
}
