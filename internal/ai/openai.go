package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"comment-pilot/internal/config"
	"comment-pilot/internal/domain"
)

const classificationSystemPrompt = `You classify social media comments left on a business account's posts.
Assign exactly one category from this list:
- positive feedback
- critical feedback
- urgent issue / complaint
- question / inquiry
- partnership proposal
- toxic / abusive
- spam / irrelevant

Respond with a JSON object: {"category": "<label>", "confidence": <0-100 integer>, "reasoning": "<one sentence>"}.`

const answerSystemPrompt = `You write short, friendly public replies to customer questions left as comments on a business account's posts.
Answer in the commenter's language. Keep the reply under 500 characters, do not use hashtags, and never promise anything you cannot verify from the post context.
Respond with a JSON object: {"answer": "<reply text>", "confidence": <0.0-1.0 number>, "quality_score": <0-100 integer>}.`

const imageAnalysisPrompt = `Describe this post image in 2-3 sentences so that comments about it can be understood without seeing it. Mention any visible products, text, prices or offers.`

// OpenAIService implements Classifier, AnswerGenerator and ImageAnalyzer
// on the OpenAI chat completions API.
type OpenAIService struct {
	client              *openai.Client
	classificationModel string
	answerModel         string
	visionModel         string
	logger              *zap.Logger
}

func NewOpenAIService(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIService {
	return &OpenAIService{
		client:              openai.NewClient(cfg.APIKey),
		classificationModel: cfg.ClassificationModel,
		answerModel:         cfg.AnswerModel,
		visionModel:         cfg.VisionModel,
		logger:              logger,
	}
}

// NewOpenAIServiceWithClient wires a pre-built client, used by tests to
// point at a local server.
func NewOpenAIServiceWithClient(client *openai.Client, cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIService {
	return &OpenAIService{
		client:              client,
		classificationModel: cfg.ClassificationModel,
		answerModel:         cfg.AnswerModel,
		visionModel:         cfg.VisionModel,
		logger:              logger,
	}
}

type classificationResponse struct {
	Category   string `json:"category"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

func (s *OpenAIService) Classify(ctx context.Context, comment *domain.Comment, mediaContext string) (*ClassificationResult, error) {
	userPrompt := buildCommentPrompt(comment, mediaContext)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.classificationModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classificationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("classification request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classification returned no choices")
	}

	var parsed classificationResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}

	category := strings.ToLower(strings.TrimSpace(parsed.Category))
	if !ValidCategory(category) {
		return nil, fmt.Errorf("unknown category %q", parsed.Category)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 100 {
		parsed.Confidence = 100
	}

	s.logger.Debug("Comment classified",
		zap.String("comment_id", comment.ID),
		zap.String("category", category),
		zap.Int("confidence", parsed.Confidence))

	return &ClassificationResult{
		Category:     category,
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

type answerResponse struct {
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	QualityScore int     `json:"quality_score"`
}

func (s *OpenAIService) GenerateAnswer(ctx context.Context, comment *domain.Comment, mediaContext string) (*AnswerResult, error) {
	userPrompt := buildCommentPrompt(comment, mediaContext)
	start := time.Now()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.answerModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("answer request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("answer returned no choices")
	}

	var parsed answerResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parse answer response: %w", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" {
		return nil, fmt.Errorf("answer response is empty")
	}

	return &AnswerResult{
		Answer:           parsed.Answer,
		Confidence:       parsed.Confidence,
		QualityScore:     parsed.QualityScore,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
		InputTokens:      resp.Usage.PromptTokens,
		OutputTokens:     resp.Usage.CompletionTokens,
	}, nil
}

func (s *OpenAIService) AnalyzeImage(ctx context.Context, imageURL, caption string) (string, error) {
	prompt := imageAnalysisPrompt
	if caption != "" {
		prompt += "\n\nPost caption: " + caption
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("image analysis request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("image analysis returned no choices")
	}

	description := strings.TrimSpace(resp.Choices[0].Message.Content)
	if description == "" {
		return "", fmt.Errorf("image analysis returned empty description")
	}
	return description, nil
}

func buildCommentPrompt(comment *domain.Comment, mediaContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comment by @%s: %s", comment.Username, comment.Text)
	if comment.IsReply() {
		b.WriteString("\n(This comment is a reply inside an existing thread.)")
	}
	if mediaContext != "" {
		b.WriteString("\n\nPost context: " + mediaContext)
	}
	return b.String()
}
