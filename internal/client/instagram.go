package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"comment-pilot/internal/config"
	"comment-pilot/internal/metrics"
)

// graphError is the error envelope the Graph API returns on failure.
type graphError struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		TraceID   string `json:"fbtrace_id"`
		IsTransient bool `json:"is_transient"`
	} `json:"error"`
}

// Graph API error codes that mean throttling rather than failure.
var rateLimitCodes = map[int]bool{
	4:   true, // application request limit
	17:  true, // user request limit
	32:  true, // page request limit
	613: true, // custom rate limit
}

// InstagramClient talks to the Instagram Graph API.
type InstagramClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

func NewInstagramClient(cfg config.InstagramConfig, logger *zap.Logger, m *metrics.Metrics) *InstagramClient {
	return &InstagramClient{
		baseURL:     strings.TrimSuffix(cfg.GraphAPIBaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
		metrics:     m,
	}
}

func (c *InstagramClient) SendReply(ctx context.Context, commentID, message string) (*ReplyResult, error) {
	form := url.Values{}
	form.Set("message", message)

	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/%s/replies", commentID), form, "send_reply")
	if err != nil {
		return nil, err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse reply response: %w", err)
	}
	if result.ID == "" {
		return nil, fmt.Errorf("reply response missing id")
	}

	c.logger.Info("Reply published",
		zap.String("comment_id", commentID),
		zap.String("reply_id", result.ID))

	return &ReplyResult{ReplyID: result.ID}, nil
}

func (c *InstagramClient) DeleteReply(ctx context.Context, replyID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+replyID, nil, "delete_reply")
	return err
}

func (c *InstagramClient) SetCommentHidden(ctx context.Context, commentID string, hidden bool) error {
	form := url.Values{}
	form.Set("hide", fmt.Sprintf("%t", hidden))

	_, err := c.do(ctx, http.MethodPost, "/"+commentID, form, "hide_comment")
	return err
}

func (c *InstagramClient) DeleteComment(ctx context.Context, commentID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/"+commentID, nil, "delete_comment")
	return err
}

func (c *InstagramClient) GetMedia(ctx context.Context, mediaID string) (*MediaInfo, error) {
	form := url.Values{}
	form.Set("fields", "id,caption,media_type,media_url,permalink,comments_count,like_count,is_comment_enabled")

	body, err := c.do(ctx, http.MethodGet, "/"+mediaID, form, "get_media")
	if err != nil {
		return nil, err
	}

	var result struct {
		ID               string `json:"id"`
		Caption          string `json:"caption"`
		MediaType        string `json:"media_type"`
		MediaURL         string `json:"media_url"`
		Permalink        string `json:"permalink"`
		CommentsCount    int    `json:"comments_count"`
		LikeCount        int    `json:"like_count"`
		IsCommentEnabled *bool  `json:"is_comment_enabled"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse media response: %w", err)
	}

	info := &MediaInfo{
		ID:               result.ID,
		Caption:          result.Caption,
		MediaType:        result.MediaType,
		MediaURL:         result.MediaURL,
		Permalink:        result.Permalink,
		CommentsCount:    result.CommentsCount,
		LikeCount:        result.LikeCount,
		IsCommentEnabled: true,
	}
	if result.IsCommentEnabled != nil {
		info.IsCommentEnabled = *result.IsCommentEnabled
	}
	return info, nil
}

// do issues one Graph API call and maps failures onto the error
// taxonomy: RateLimitedError, TransientError or PermanentError.
func (c *InstagramClient) do(ctx context.Context, method, path string, params url.Values, operation string) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	fullURL := c.baseURL + path
	var req *http.Request
	var err error
	if method == http.MethodGet || method == http.MethodDelete {
		req, err = http.NewRequestWithContext(ctx, method, fullURL+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, fullURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("build graph request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordExternalAPIRequest("instagram", operation, duration, err)
	}
	if err != nil {
		return nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransientError{Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	var ge graphError
	_ = json.Unmarshal(body, &ge)

	c.logger.Warn("Graph API call failed",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode),
		zap.Int("code", ge.Error.Code),
		zap.Int("subcode", ge.Error.Subcode),
		zap.String("message", ge.Error.Message))

	if rateLimitCodes[ge.Error.Code] || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitedError{RetryAfter: retryAfterHint(resp)}
	}
	if resp.StatusCode >= 500 || ge.Error.IsTransient || ge.Error.Code == 2 {
		return nil, &TransientError{Cause: fmt.Errorf("graph api status %d: %s", resp.StatusCode, ge.Error.Message)}
	}
	return nil, &PermanentError{Code: ge.Error.Code, Message: ge.Error.Message}
}

func retryAfterHint(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := time.ParseDuration(header + "s"); err == nil {
		return seconds
	}
	return 0
}
