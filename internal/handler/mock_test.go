package handler

import (
	"context"

	"comment-pilot/internal/domain"
	"comment-pilot/internal/dto"
	"comment-pilot/internal/service"
)

// MockIngestService is a mock implementation of service.IngestService
type MockIngestService struct {
	IngestCommentFunc func(ctx context.Context, accountID string, value *dto.CommentValue) (*service.IngestResult, error)
	Calls             []string
}

func (m *MockIngestService) IngestComment(ctx context.Context, accountID string, value *dto.CommentValue) (*service.IngestResult, error) {
	m.Calls = append(m.Calls, value.ID)
	if m.IngestCommentFunc != nil {
		return m.IngestCommentFunc(ctx, accountID, value)
	}
	return &service.IngestResult{Outcome: service.IngestCreated, CommentID: value.ID}, nil
}

// MockModerationService is a mock implementation of service.ModerationService
type MockModerationService struct {
	SetHiddenFunc        func(ctx context.Context, commentID string, hidden, byAI bool) error
	DeleteCascadeFunc    func(ctx context.Context, commentID string, byAI bool) (int64, error)
	ProcessDeleteFunc    func(ctx context.Context, commentID string, attempt int) (*service.Result, error)
	SendManualReplyFunc  func(ctx context.Context, commentID, text string) (*domain.Answer, error)
	GetCommentStatusFunc func(ctx context.Context, commentID string) (*dto.CommentStatusResponse, error)
}

func (m *MockModerationService) SetHidden(ctx context.Context, commentID string, hidden, byAI bool) error {
	if m.SetHiddenFunc != nil {
		return m.SetHiddenFunc(ctx, commentID, hidden, byAI)
	}
	return nil
}

func (m *MockModerationService) DeleteCascade(ctx context.Context, commentID string, byAI bool) (int64, error) {
	if m.DeleteCascadeFunc != nil {
		return m.DeleteCascadeFunc(ctx, commentID, byAI)
	}
	return 1, nil
}

func (m *MockModerationService) ProcessDelete(ctx context.Context, commentID string, attempt int) (*service.Result, error) {
	if m.ProcessDeleteFunc != nil {
		return m.ProcessDeleteFunc(ctx, commentID, attempt)
	}
	return &service.Result{Outcome: service.OutcomeSuccess}, nil
}

func (m *MockModerationService) SendManualReply(ctx context.Context, commentID, text string) (*domain.Answer, error) {
	if m.SendManualReplyFunc != nil {
		return m.SendManualReplyFunc(ctx, commentID, text)
	}
	return &domain.Answer{ID: 1, CommentID: commentID, Answer: text}, nil
}

func (m *MockModerationService) GetCommentStatus(ctx context.Context, commentID string) (*dto.CommentStatusResponse, error) {
	if m.GetCommentStatusFunc != nil {
		return m.GetCommentStatusFunc(ctx, commentID)
	}
	return &dto.CommentStatusResponse{CommentID: commentID}, nil
}

// MockMediaService is a mock implementation of service.MediaService
type MockMediaService struct {
	EnsureMediaFunc          func(ctx context.Context, mediaID string) (*domain.Media, error)
	ProcessAnalysisFunc      func(ctx context.Context, mediaID string, attempt int) (*service.Result, error)
	SetProcessingEnabledFunc func(ctx context.Context, mediaID string, enabled bool) error
}

func (m *MockMediaService) EnsureMedia(ctx context.Context, mediaID string) (*domain.Media, error) {
	if m.EnsureMediaFunc != nil {
		return m.EnsureMediaFunc(ctx, mediaID)
	}
	return &domain.Media{ID: mediaID}, nil
}

func (m *MockMediaService) ProcessAnalysis(ctx context.Context, mediaID string, attempt int) (*service.Result, error) {
	if m.ProcessAnalysisFunc != nil {
		return m.ProcessAnalysisFunc(ctx, mediaID, attempt)
	}
	return &service.Result{Outcome: service.OutcomeSuccess}, nil
}

func (m *MockMediaService) SetProcessingEnabled(ctx context.Context, mediaID string, enabled bool) error {
	if m.SetProcessingEnabledFunc != nil {
		return m.SetProcessingEnabledFunc(ctx, mediaID, enabled)
	}
	return nil
}
