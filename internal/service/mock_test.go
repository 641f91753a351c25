package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/client"
	"comment-pilot/internal/domain"
)

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	CreateFunc                     func(ctx context.Context, comment *domain.Comment, classification *domain.Classification) error
	FindByIDFunc                   func(ctx context.Context, id string) (*domain.Comment, error)
	FindByIDWithMediaFunc          func(ctx context.Context, id string) (*domain.Comment, error)
	ExistsFunc                     func(ctx context.Context, id string) (bool, error)
	SetHiddenFunc                  func(ctx context.Context, id string, hidden, byAI bool) error
	MarkDeletedWithDescendantsFunc func(ctx context.Context, rootID string, byAI bool) ([]string, int64, error)
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *domain.Comment, classification *domain.Classification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, comment, classification)
	}
	return nil
}

func (m *MockCommentRepository) FindByID(ctx context.Context, id string) (*domain.Comment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockCommentRepository) FindByIDWithMedia(ctx context.Context, id string) (*domain.Comment, error) {
	if m.FindByIDWithMediaFunc != nil {
		return m.FindByIDWithMediaFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockCommentRepository) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, id)
	}
	return false, nil
}

func (m *MockCommentRepository) SetHidden(ctx context.Context, id string, hidden, byAI bool) error {
	if m.SetHiddenFunc != nil {
		return m.SetHiddenFunc(ctx, id, hidden, byAI)
	}
	return nil
}

func (m *MockCommentRepository) MarkDeletedWithDescendants(ctx context.Context, rootID string, byAI bool) ([]string, int64, error) {
	if m.MarkDeletedWithDescendantsFunc != nil {
		return m.MarkDeletedWithDescendantsFunc(ctx, rootID, byAI)
	}
	return nil, 0, nil
}

// MockClassificationRepository is a mock implementation of ClassificationRepository
type MockClassificationRepository struct {
	FindByCommentIDFunc      func(ctx context.Context, commentID string) (*domain.Classification, error)
	ClaimProcessingFunc      func(ctx context.Context, commentID string) (bool, error)
	CompleteFunc             func(ctx context.Context, commentID string, result *ai.ClassificationResult) error
	MarkRetryFunc            func(ctx context.Context, commentID string, retryCount int, lastError string) error
	MarkFailedFunc           func(ctx context.Context, commentID string, lastError string) error
	ResetForReprocessingFunc func(ctx context.Context, commentID string) error
	FindStaleProcessingFunc  func(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error)
	FindStuckRetryFunc       func(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error)
}

func (m *MockClassificationRepository) FindByCommentID(ctx context.Context, commentID string) (*domain.Classification, error) {
	if m.FindByCommentIDFunc != nil {
		return m.FindByCommentIDFunc(ctx, commentID)
	}
	return &domain.Classification{CommentID: commentID, Status: domain.StatusPending, MaxRetries: 5}, nil
}

func (m *MockClassificationRepository) ClaimProcessing(ctx context.Context, commentID string) (bool, error) {
	if m.ClaimProcessingFunc != nil {
		return m.ClaimProcessingFunc(ctx, commentID)
	}
	return true, nil
}

func (m *MockClassificationRepository) Complete(ctx context.Context, commentID string, result *ai.ClassificationResult) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, commentID, result)
	}
	return nil
}

func (m *MockClassificationRepository) MarkRetry(ctx context.Context, commentID string, retryCount int, lastError string) error {
	if m.MarkRetryFunc != nil {
		return m.MarkRetryFunc(ctx, commentID, retryCount, lastError)
	}
	return nil
}

func (m *MockClassificationRepository) MarkFailed(ctx context.Context, commentID string, lastError string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, commentID, lastError)
	}
	return nil
}

func (m *MockClassificationRepository) ResetForReprocessing(ctx context.Context, commentID string) error {
	if m.ResetForReprocessingFunc != nil {
		return m.ResetForReprocessingFunc(ctx, commentID)
	}
	return nil
}

func (m *MockClassificationRepository) FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error) {
	if m.FindStaleProcessingFunc != nil {
		return m.FindStaleProcessingFunc(ctx, olderThan)
	}
	return nil, nil
}

func (m *MockClassificationRepository) FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Classification, error) {
	if m.FindStuckRetryFunc != nil {
		return m.FindStuckRetryFunc(ctx, olderThan)
	}
	return nil, nil
}

// MockAnswerRepository is a mock implementation of AnswerRepository
type MockAnswerRepository struct {
	CreateFunc                 func(ctx context.Context, answer *domain.Answer) error
	FindByIDFunc               func(ctx context.Context, id uint) (*domain.Answer, error)
	FindActiveByCommentIDFunc  func(ctx context.Context, commentID string) (*domain.Answer, error)
	FindByReplyIDFunc          func(ctx context.Context, replyID string) (*domain.Answer, error)
	ClaimProcessingFunc        func(ctx context.Context, id uint) (bool, error)
	CompleteFunc               func(ctx context.Context, id uint, result *ai.AnswerResult) error
	MarkRetryFunc              func(ctx context.Context, id uint, retryCount int, lastError string) error
	MarkFailedFunc             func(ctx context.Context, id uint, lastError string) error
	MarkReplySentFunc          func(ctx context.Context, id uint, replyID string) error
	MarkReplyFailedFunc        func(ctx context.Context, id uint, replyError string) error
	SoftDeleteByCommentIDsFunc func(ctx context.Context, commentIDs []string) (int64, error)
	FindStaleProcessingFunc    func(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error)
	FindStuckRetryFunc         func(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error)
}

func (m *MockAnswerRepository) Create(ctx context.Context, answer *domain.Answer) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, answer)
	}
	return nil
}

func (m *MockAnswerRepository) FindByID(ctx context.Context, id uint) (*domain.Answer, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockAnswerRepository) FindActiveByCommentID(ctx context.Context, commentID string) (*domain.Answer, error) {
	if m.FindActiveByCommentIDFunc != nil {
		return m.FindActiveByCommentIDFunc(ctx, commentID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockAnswerRepository) FindByReplyID(ctx context.Context, replyID string) (*domain.Answer, error) {
	if m.FindByReplyIDFunc != nil {
		return m.FindByReplyIDFunc(ctx, replyID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockAnswerRepository) ClaimProcessing(ctx context.Context, id uint) (bool, error) {
	if m.ClaimProcessingFunc != nil {
		return m.ClaimProcessingFunc(ctx, id)
	}
	return true, nil
}

func (m *MockAnswerRepository) Complete(ctx context.Context, id uint, result *ai.AnswerResult) error {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, result)
	}
	return nil
}

func (m *MockAnswerRepository) MarkRetry(ctx context.Context, id uint, retryCount int, lastError string) error {
	if m.MarkRetryFunc != nil {
		return m.MarkRetryFunc(ctx, id, retryCount, lastError)
	}
	return nil
}

func (m *MockAnswerRepository) MarkFailed(ctx context.Context, id uint, lastError string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id, lastError)
	}
	return nil
}

func (m *MockAnswerRepository) MarkReplySent(ctx context.Context, id uint, replyID string) error {
	if m.MarkReplySentFunc != nil {
		return m.MarkReplySentFunc(ctx, id, replyID)
	}
	return nil
}

func (m *MockAnswerRepository) MarkReplyFailed(ctx context.Context, id uint, replyError string) error {
	if m.MarkReplyFailedFunc != nil {
		return m.MarkReplyFailedFunc(ctx, id, replyError)
	}
	return nil
}

func (m *MockAnswerRepository) SoftDeleteByCommentIDs(ctx context.Context, commentIDs []string) (int64, error) {
	if m.SoftDeleteByCommentIDsFunc != nil {
		return m.SoftDeleteByCommentIDsFunc(ctx, commentIDs)
	}
	return 0, nil
}

func (m *MockAnswerRepository) FindStaleProcessing(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error) {
	if m.FindStaleProcessingFunc != nil {
		return m.FindStaleProcessingFunc(ctx, olderThan)
	}
	return nil, nil
}

func (m *MockAnswerRepository) FindStuckRetry(ctx context.Context, olderThan time.Time) ([]*domain.Answer, error) {
	if m.FindStuckRetryFunc != nil {
		return m.FindStuckRetryFunc(ctx, olderThan)
	}
	return nil, nil
}

// MockMediaRepository is a mock implementation of MediaRepository
type MockMediaRepository struct {
	FindByIDFunc             func(ctx context.Context, id string) (*domain.Media, error)
	CreateIfAbsentFunc       func(ctx context.Context, media *domain.Media) (*domain.Media, error)
	UpdateContextFunc        func(ctx context.Context, id, description string) error
	SetAnalysisStatusFunc    func(ctx context.Context, id string, status domain.AnalysisStatus) error
	SetProcessingEnabledFunc func(ctx context.Context, id string, enabled bool) error
	SetArchiveKeyFunc        func(ctx context.Context, id, key string) error
}

func (m *MockMediaRepository) FindByID(ctx context.Context, id string) (*domain.Media, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMediaRepository) CreateIfAbsent(ctx context.Context, media *domain.Media) (*domain.Media, error) {
	if m.CreateIfAbsentFunc != nil {
		return m.CreateIfAbsentFunc(ctx, media)
	}
	return media, nil
}

func (m *MockMediaRepository) UpdateContext(ctx context.Context, id, description string) error {
	if m.UpdateContextFunc != nil {
		return m.UpdateContextFunc(ctx, id, description)
	}
	return nil
}

func (m *MockMediaRepository) SetAnalysisStatus(ctx context.Context, id string, status domain.AnalysisStatus) error {
	if m.SetAnalysisStatusFunc != nil {
		return m.SetAnalysisStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockMediaRepository) SetProcessingEnabled(ctx context.Context, id string, enabled bool) error {
	if m.SetProcessingEnabledFunc != nil {
		return m.SetProcessingEnabledFunc(ctx, id, enabled)
	}
	return nil
}

func (m *MockMediaRepository) SetArchiveKey(ctx context.Context, id, key string) error {
	if m.SetArchiveKeyFunc != nil {
		return m.SetArchiveKeyFunc(ctx, id, key)
	}
	return nil
}

// MockPlatformClient is a mock implementation of client.PlatformClient
type MockPlatformClient struct {
	SendReplyFunc        func(ctx context.Context, commentID, message string) (*client.ReplyResult, error)
	DeleteReplyFunc      func(ctx context.Context, replyID string) error
	SetCommentHiddenFunc func(ctx context.Context, commentID string, hidden bool) error
	DeleteCommentFunc    func(ctx context.Context, commentID string) error
	GetMediaFunc         func(ctx context.Context, mediaID string) (*client.MediaInfo, error)
}

func (m *MockPlatformClient) SendReply(ctx context.Context, commentID, message string) (*client.ReplyResult, error) {
	if m.SendReplyFunc != nil {
		return m.SendReplyFunc(ctx, commentID, message)
	}
	return &client.ReplyResult{ReplyID: "mock_reply"}, nil
}

func (m *MockPlatformClient) DeleteReply(ctx context.Context, replyID string) error {
	if m.DeleteReplyFunc != nil {
		return m.DeleteReplyFunc(ctx, replyID)
	}
	return nil
}

func (m *MockPlatformClient) SetCommentHidden(ctx context.Context, commentID string, hidden bool) error {
	if m.SetCommentHiddenFunc != nil {
		return m.SetCommentHiddenFunc(ctx, commentID, hidden)
	}
	return nil
}

func (m *MockPlatformClient) DeleteComment(ctx context.Context, commentID string) error {
	if m.DeleteCommentFunc != nil {
		return m.DeleteCommentFunc(ctx, commentID)
	}
	return nil
}

func (m *MockPlatformClient) GetMedia(ctx context.Context, mediaID string) (*client.MediaInfo, error) {
	if m.GetMediaFunc != nil {
		return m.GetMediaFunc(ctx, mediaID)
	}
	return &client.MediaInfo{ID: mediaID, MediaType: domain.MediaTypeVideo, IsCommentEnabled: true}, nil
}

// MockClassifier is a mock implementation of ai.Classifier
type MockClassifier struct {
	ClassifyFunc func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error)
}

func (m *MockClassifier) Classify(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, comment, mediaContext)
	}
	return &ai.ClassificationResult{Category: domain.CategoryPositiveFeedback, Confidence: 90}, nil
}

// MockAnswerGenerator is a mock implementation of ai.AnswerGenerator
type MockAnswerGenerator struct {
	GenerateAnswerFunc func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.AnswerResult, error)
}

func (m *MockAnswerGenerator) GenerateAnswer(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.AnswerResult, error) {
	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, comment, mediaContext)
	}
	return &ai.AnswerResult{Answer: "mock answer", Confidence: 0.9, QualityScore: 80}, nil
}

// MockImageAnalyzer is a mock implementation of ai.ImageAnalyzer
type MockImageAnalyzer struct {
	AnalyzeImageFunc func(ctx context.Context, imageURL, caption string) (string, error)
}

func (m *MockImageAnalyzer) AnalyzeImage(ctx context.Context, imageURL, caption string) (string, error) {
	if m.AnalyzeImageFunc != nil {
		return m.AnalyzeImageFunc(ctx, imageURL, caption)
	}
	return "mock description", nil
}

// MockNotifier is a mock implementation of client.Notifier
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, text string) error
	Sent       []string
}

func (m *MockNotifier) Notify(ctx context.Context, text string) error {
	m.Sent = append(m.Sent, text)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, text)
	}
	return nil
}

// MockMediaService is a mock implementation of MediaService
type MockMediaService struct {
	EnsureMediaFunc          func(ctx context.Context, mediaID string) (*domain.Media, error)
	ProcessAnalysisFunc      func(ctx context.Context, mediaID string, attempt int) (*Result, error)
	SetProcessingEnabledFunc func(ctx context.Context, mediaID string, enabled bool) error
}

func (m *MockMediaService) EnsureMedia(ctx context.Context, mediaID string) (*domain.Media, error) {
	if m.EnsureMediaFunc != nil {
		return m.EnsureMediaFunc(ctx, mediaID)
	}
	return &domain.Media{
		ID:                  mediaID,
		Platform:            domain.PlatformInstagram,
		IsCommentEnabled:    true,
		IsProcessingEnabled: true,
	}, nil
}

func (m *MockMediaService) ProcessAnalysis(ctx context.Context, mediaID string, attempt int) (*Result, error) {
	if m.ProcessAnalysisFunc != nil {
		return m.ProcessAnalysisFunc(ctx, mediaID, attempt)
	}
	return success(), nil
}

func (m *MockMediaService) SetProcessingEnabled(ctx context.Context, mediaID string, enabled bool) error {
	if m.SetProcessingEnabledFunc != nil {
		return m.SetProcessingEnabledFunc(ctx, mediaID, enabled)
	}
	return nil
}

// MockRateLimiter is a mock implementation of ratelimit.RateLimiter
type MockRateLimiter struct {
	AcquireFunc func(ctx context.Context) (bool, time.Duration, error)
	Calls       int
}

func (m *MockRateLimiter) Acquire(ctx context.Context) (bool, time.Duration, error) {
	m.Calls++
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx)
	}
	return true, 0, nil
}

// MockLocker is a mock implementation of lock.Locker
type MockLocker struct {
	AcquireFunc func(ctx context.Context, key string, ttl time.Duration) (bool, func(), error)
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, func(), error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, key, ttl)
	}
	return true, func() {}, nil
}
