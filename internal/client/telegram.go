package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"comment-pilot/internal/config"
	"comment-pilot/internal/metrics"
)

// Notifier alerts operators about comments that need human attention.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramNotifier posts alerts to a Telegram chat via the bot API.
// Delivery failures are logged and swallowed so a notification outage
// never blocks comment processing.
type TelegramNotifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zap.Logger, m *metrics.Metrics) *TelegramNotifier {
	return &TelegramNotifier{
		botToken:   cfg.BotToken,
		chatID:     cfg.ChatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		metrics:    m,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)

	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    text,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := n.httpClient.Do(req)
	duration := time.Since(start)
	if n.metrics != nil {
		n.metrics.RecordExternalAPIRequest("telegram", "send_message", duration, err)
	}
	if err != nil {
		n.logger.Error("Failed to send telegram notification",
			zap.Error(err),
			zap.Duration("duration", duration))
		// Graceful degradation: don't fail the main operation
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warn("Telegram API returned non-success status",
			zap.Int("status_code", resp.StatusCode),
			zap.Duration("duration", duration))
	}
	return nil
}

// NoOpNotifier is used when operator notifications are disabled.
type NoOpNotifier struct{}

func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) Notify(ctx context.Context, text string) error {
	return nil
}
