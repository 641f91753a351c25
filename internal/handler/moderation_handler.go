package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"comment-pilot/internal/dto"
	"comment-pilot/internal/response"
	"comment-pilot/internal/service"
)

// ModerationHandler exposes the operator API: hide, delete, pipeline
// status and the per-media processing switch.
type ModerationHandler struct {
	moderationService service.ModerationService
	mediaService      service.MediaService
	logger            *zap.Logger
}

func NewModerationHandler(moderationService service.ModerationService, mediaService service.MediaService, logger *zap.Logger) *ModerationHandler {
	return &ModerationHandler{
		moderationService: moderationService,
		mediaService:      mediaService,
		logger:            logger,
	}
}

// SetHidden toggles a comment's hidden state on the platform and locally.
func (h *ModerationHandler) SetHidden(c *gin.Context) {
	commentID := c.Param("id")

	var req dto.HideCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	if err := h.moderationService.SetHidden(c.Request.Context(), commentID, req.Hidden, false); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{
		"comment_id": commentID,
		"hidden":     req.Hidden,
	})
}

// Delete soft-deletes a comment and its whole reply tree.
func (h *ModerationHandler) Delete(c *gin.Context) {
	commentID := c.Param("id")

	deleted, err := h.moderationService.DeleteCascade(c.Request.Context(), commentID, false)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.DeleteCommentResponse{
		CommentID:    commentID,
		DeletedCount: deleted,
	})
}

// Reply queues an operator-written reply for dispatch.
func (h *ModerationHandler) Reply(c *gin.Context) {
	commentID := c.Param("id")

	var req dto.ManualReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Field 'text' is required")
		return
	}

	answer, err := h.moderationService.SendManualReply(c.Request.Context(), commentID, req.Text)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusAccepted, dto.ManualReplyResponse{
		CommentID: commentID,
		AnswerID:  answer.ID,
	})
}

// Status reports a comment's pipeline state.
func (h *ModerationHandler) Status(c *gin.Context) {
	status, err := h.moderationService.GetCommentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, status)
}

// SetMediaProcessing pauses or resumes automated handling of new
// comments on one media item.
func (h *ModerationHandler) SetMediaProcessing(c *gin.Context) {
	mediaID := c.Param("id")

	var req dto.MediaProcessingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Field 'enabled' is required")
		return
	}

	if err := h.mediaService.SetProcessingEnabled(c.Request.Context(), mediaID, *req.Enabled); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{
		"media_id": mediaID,
		"enabled":  *req.Enabled,
	})
}
