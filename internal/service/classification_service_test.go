package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"comment-pilot/internal/ai"
	"comment-pilot/internal/config"
	"comment-pilot/internal/domain"
	"comment-pilot/internal/queue"
)

type classificationFixture struct {
	commentRepo        *MockCommentRepository
	classificationRepo *MockClassificationRepository
	answerRepo         *MockAnswerRepository
	mediaRepo          *MockMediaRepository
	classifier         *MockClassifier
	notifier           *MockNotifier
	queue              *queue.MemoryQueue
	moderation         config.ModerationConfig
}

func newClassificationFixture() *classificationFixture {
	return &classificationFixture{
		commentRepo:        &MockCommentRepository{},
		classificationRepo: &MockClassificationRepository{},
		answerRepo:         &MockAnswerRepository{},
		mediaRepo:          &MockMediaRepository{},
		classifier:         &MockClassifier{},
		notifier:           &MockNotifier{},
		queue:              queue.NewMemoryQueue(),
		moderation:         config.ModerationConfig{AutoDelete: true, Notify: true},
	}
}

func (f *classificationFixture) build() ClassificationService {
	return NewClassificationService(
		f.commentRepo,
		f.classificationRepo,
		f.answerRepo,
		f.mediaRepo,
		f.classifier,
		f.notifier,
		f.queue,
		f.moderation,
		testMetrics(),
		zap.NewNop(),
	)
}

func classifiableComment(id string) *domain.Comment {
	return &domain.Comment{
		ID:       id,
		MediaID:  "m1",
		Username: "alice",
		Text:     "Is this available in blue?",
		Media:    &domain.Media{ID: "m1", AnalysisStatus: domain.AnalysisCompleted},
	}
}

func TestProcessClassification_QuestionStartsAnswer(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classificationRepo.FindByCommentIDFunc = func(ctx context.Context, commentID string) (*domain.Classification, error) {
		return &domain.Classification{CommentID: commentID, Status: domain.StatusPending, MaxRetries: 5}, nil
	}
	var completed *ai.ClassificationResult
	f.classificationRepo.CompleteFunc = func(ctx context.Context, commentID string, result *ai.ClassificationResult) error {
		completed = result
		return nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return &ai.ClassificationResult{Category: domain.CategoryQuestionInquiry, Confidence: 92}, nil
	}
	var createdAnswer *domain.Answer
	f.answerRepo.CreateFunc = func(ctx context.Context, answer *domain.Answer) error {
		answer.ID = 7
		createdAnswer = answer
		return nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)

	require.NotNil(t, completed)
	assert.Equal(t, domain.CategoryQuestionInquiry, completed.Category)
	require.NotNil(t, createdAnswer)
	assert.Equal(t, "c1", createdAnswer.CommentID)

	drainTask(t, f.queue, TaskGenerateAnswer)
	assertQueueEmpty(t, f.queue)
	assert.Empty(t, f.notifier.Sent, "a question is not an operator alert")
}

func TestProcessClassification_SpamRoutesNowhere(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return &ai.ClassificationResult{Category: domain.CategorySpamIrrelevant, Confidence: 88}, nil
	}
	answerCreated := false
	f.answerRepo.CreateFunc = func(ctx context.Context, answer *domain.Answer) error {
		answerCreated = true
		return nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.False(t, answerCreated)
	assertQueueEmpty(t, f.queue)
	assert.Empty(t, f.notifier.Sent)
}

func TestProcessClassification_ComplaintDeletesAndNotifies(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return &ai.ClassificationResult{Category: domain.CategoryUrgentComplaint, Confidence: 95}, nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)

	drainTask(t, f.queue, TaskDeleteComment)
	require.Len(t, f.notifier.Sent, 1)
	assert.Contains(t, f.notifier.Sent[0], "@alice")
	assert.Contains(t, f.notifier.Sent[0], domain.CategoryUrgentComplaint)
}

func TestProcessClassification_AutoDeleteDisabled(t *testing.T) {
	f := newClassificationFixture()
	f.moderation = config.ModerationConfig{AutoDelete: false, Notify: false}
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return &ai.ClassificationResult{Category: domain.CategoryToxicAbusive, Confidence: 99}, nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assertQueueEmpty(t, f.queue)
	assert.Empty(t, f.notifier.Sent)
}

func TestProcessClassification_NotClaimableSkips(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classificationRepo.FindByCommentIDFunc = func(ctx context.Context, commentID string) (*domain.Classification, error) {
		return &domain.Classification{CommentID: commentID, Status: domain.StatusCompleted}, nil
	}
	f.classificationRepo.ClaimProcessingFunc = func(ctx context.Context, commentID string) (bool, error) {
		return false, nil
	}
	classified := false
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		classified = true
		return nil, errors.New("should not be called")
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.False(t, classified)
}

func TestProcessClassification_DeletedCommentSkips(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		c := classifiableComment(id)
		c.IsDeleted = true
		return c, nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
}

func TestProcessClassification_MissingCommentSkips(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return nil, gorm.ErrRecordNotFound
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, result.Outcome)
}

func TestProcessClassification_DefersUntilMediaAnalyzed(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		c := classifiableComment(id)
		c.Media = &domain.Media{
			ID:             "m1",
			MediaType:      domain.MediaTypeImage,
			MediaURL:       "https://cdn.example.com/m1.jpg",
			AnalysisStatus: domain.AnalysisNone,
		}
		return c, nil
	}
	var markedRetry int
	f.classificationRepo.MarkRetryFunc = func(ctx context.Context, commentID string, retryCount int, lastError string) error {
		markedRetry = retryCount
		return nil
	}
	var statusSet domain.AnalysisStatus
	f.mediaRepo.SetAnalysisStatusFunc = func(ctx context.Context, mediaID string, status domain.AnalysisStatus) error {
		statusSet = status
		return nil
	}
	classified := false
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		classified = true
		return nil, errors.New("should not be called")
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetry, result.Outcome)
	assert.False(t, classified, "classification must wait for the image description")
	assert.Equal(t, 1, markedRetry)
	assert.Equal(t, domain.AnalysisPending, statusSet)
	drainTask(t, f.queue, TaskAnalyzeMedia)
}

func TestProcessClassification_AnalysisGateConsumesBudget(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		c := classifiableComment(id)
		c.Media = &domain.Media{
			ID:             "m1",
			MediaType:      domain.MediaTypeImage,
			MediaURL:       "https://cdn.example.com/m1.jpg",
			AnalysisStatus: domain.AnalysisPending,
		}
		return c, nil
	}
	f.classificationRepo.FindByCommentIDFunc = func(ctx context.Context, commentID string) (*domain.Classification, error) {
		return &domain.Classification{CommentID: commentID, Status: domain.StatusRetry, MaxRetries: 5}, nil
	}
	var markedRetry int
	f.classificationRepo.MarkRetryFunc = func(ctx context.Context, commentID string, retryCount int, lastError string) error {
		markedRetry = retryCount
		return nil
	}
	var failReason string
	f.classificationRepo.MarkFailedFunc = func(ctx context.Context, commentID string, lastError string) error {
		failReason = lastError
		return nil
	}
	svc := f.build()

	// The fifth delivery still retries and records the full budget
	result, err := svc.ProcessClassification(context.Background(), "c1", 4)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetry, result.Outcome)
	assert.Equal(t, 5, markedRetry)
	assert.Empty(t, failReason)

	// The sixth delivery exhausts it
	result, err = svc.ProcessClassification(context.Background(), "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.NotEmpty(t, failReason)
	assertQueueEmpty(t, f.queue, "analysis already pending, no second task")
}

func TestProcessClassification_ClassifierFailureRetries(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classificationRepo.FindByCommentIDFunc = func(ctx context.Context, commentID string) (*domain.Classification, error) {
		return &domain.Classification{CommentID: commentID, Status: domain.StatusPending, MaxRetries: 5}, nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return nil, errors.New("model timeout")
	}
	var markedRetry int
	f.classificationRepo.MarkRetryFunc = func(ctx context.Context, commentID string, retryCount int, lastError string) error {
		markedRetry = retryCount
		return nil
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetry, result.Outcome)
	assert.Equal(t, 3, markedRetry)
}

func TestProcessClassification_ClassifierFailureExhaustsBudget(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classificationRepo.FindByCommentIDFunc = func(ctx context.Context, commentID string) (*domain.Classification, error) {
		return &domain.Classification{CommentID: commentID, Status: domain.StatusRetry, MaxRetries: 5}, nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return nil, errors.New("model timeout")
	}
	var markedRetry int
	f.classificationRepo.MarkRetryFunc = func(ctx context.Context, commentID string, retryCount int, lastError string) error {
		markedRetry = retryCount
		return nil
	}
	failCalled := false
	f.classificationRepo.MarkFailedFunc = func(ctx context.Context, commentID string, lastError string) error {
		failCalled = true
		return nil
	}
	svc := f.build()

	// With MaxRetries 5 the row survives retry counts 1 through 5
	result, err := svc.ProcessClassification(context.Background(), "c1", 4)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetry, result.Outcome)
	assert.Equal(t, 5, markedRetry)
	assert.False(t, failCalled)

	result, err = svc.ProcessClassification(context.Background(), "c1", 5)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.True(t, failCalled)
}

func TestProcessClassification_AnswerAlreadyExists(t *testing.T) {
	f := newClassificationFixture()
	f.commentRepo.FindByIDWithMediaFunc = func(ctx context.Context, id string) (*domain.Comment, error) {
		return classifiableComment(id), nil
	}
	f.classifier.ClassifyFunc = func(ctx context.Context, comment *domain.Comment, mediaContext string) (*ai.ClassificationResult, error) {
		return &ai.ClassificationResult{Category: domain.CategoryQuestionInquiry, Confidence: 90}, nil
	}
	f.answerRepo.CreateFunc = func(ctx context.Context, answer *domain.Answer) error {
		return gorm.ErrDuplicatedKey
	}

	result, err := f.build().ProcessClassification(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assertQueueEmpty(t, f.queue, "the winning creator enqueues generation, not us")
}
