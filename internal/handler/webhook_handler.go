package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"comment-pilot/internal/dto"
	"comment-pilot/internal/response"
	"comment-pilot/internal/service"
)

// WebhookHandler terminates the platform webhook: the GET verification
// handshake and the POST comment notifications.
type WebhookHandler struct {
	ingestService service.IngestService
	verifyToken   string
	logger        *zap.Logger
}

func NewWebhookHandler(ingestService service.IngestService, verifyToken string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingestService: ingestService,
		verifyToken:   verifyToken,
		logger:        logger,
	}
}

// Verify answers the platform's subscription handshake. The challenge
// is echoed back as plain text only when the verify token matches.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" || challenge == "" {
		response.SendError(c, http.StatusUnprocessableEntity, response.ErrCodeValidation, "Missing verification parameters")
		return
	}
	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("Webhook verification rejected", zap.String("mode", mode))
		response.SendError(c, http.StatusForbidden, response.ErrCodeForbidden, "Verification token mismatch")
		return
	}

	c.String(http.StatusOK, challenge)
}

// Receive processes a webhook delivery. Every comment change is pushed
// through ingestion; skips and duplicates still acknowledge with 200 so
// the platform does not redeliver them.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload dto.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid webhook payload")
		return
	}

	results := make([]gin.H, 0)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "comments" {
				continue
			}
			value := change.Value
			result, err := h.ingestService.IngestComment(c.Request.Context(), entry.ID, &value)
			if err != nil {
				handleServiceError(c, h.logger, err)
				return
			}
			results = append(results, gin.H{
				"comment_id": result.CommentID,
				"outcome":    result.Outcome,
			})
		}
	}

	response.SendSuccess(c, http.StatusOK, gin.H{
		"status":  "ok",
		"results": results,
	})
}
