package ai

import (
	"context"

	"comment-pilot/internal/domain"
)

// ClassificationResult is the classifier's verdict for one comment.
// Confidence is a 0-100 percentage.
type ClassificationResult struct {
	Category     string
	Confidence   int
	Reasoning    string
	InputTokens  int
	OutputTokens int
}

// AnswerResult is a generated public reply. Confidence is 0.0-1.0 and
// QualityScore 0-100.
type AnswerResult struct {
	Answer           string
	Confidence       float64
	QualityScore     int
	ProcessingTimeMs int
	InputTokens      int
	OutputTokens     int
}

// Classifier assigns one of the known category labels to a comment.
type Classifier interface {
	Classify(ctx context.Context, comment *domain.Comment, mediaContext string) (*ClassificationResult, error)
}

// AnswerGenerator produces a reply for a question or inquiry comment.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, comment *domain.Comment, mediaContext string) (*AnswerResult, error)
}

// ImageAnalyzer describes a media image so classification of comments
// on it has visual context.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, imageURL, caption string) (description string, err error)
}

// Categories lists every label the classifier may return, in the order
// they are presented in the prompt.
var Categories = []string{
	domain.CategoryPositiveFeedback,
	domain.CategoryCriticalFeedback,
	domain.CategoryUrgentComplaint,
	domain.CategoryQuestionInquiry,
	domain.CategoryPartnershipProposal,
	domain.CategoryToxicAbusive,
	domain.CategorySpamIrrelevant,
}

// ValidCategory reports whether label is one of the known categories.
func ValidCategory(label string) bool {
	for _, c := range Categories {
		if c == label {
			return true
		}
	}
	return false
}
