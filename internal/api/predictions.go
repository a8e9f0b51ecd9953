package api

import (
	"net/http"
	"strconv"

	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type predictRequest struct {
	ModelName string                 `json:"model_name" binding:"required"`
	Input     map[string]interface{} `json:"input" binding:"required"`
}

type feedbackRequest struct {
	ModelName    string                 `json:"model_name" binding:"required"`
	Input        map[string]interface{} `json:"input" binding:"required"`
	CorrectLabel string                 `json:"correct_label" binding:"required"`
}

type correctionRequest struct {
	CorrectLabel string `json:"correct_label" binding:"required"`
}

// Predict serves a prediction and logs it as feedback.
// POST /api/v1/predict
func (h *Handler) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	result, err := h.deps.Predictions.Predict(c.Request.Context(), req.ModelName, req.Input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitFeedback predicts and records the correct label in one call.
// POST /api/v1/predict/feedback
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	result, err := h.deps.Predictions.SubmitFeedback(c.Request.Context(), req.ModelName, req.Input, req.CorrectLabel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CorrectFeedback attaches a correction to a logged prediction.
// PUT /api/v1/feedback/:id/correction
func (h *Handler) CorrectFeedback(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.respondError(c, apperrors.BadRequest("invalid feedback id"))
		return
	}

	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	record, err := h.deps.Predictions.Correct(c.Request.Context(), uint(id), req.CorrectLabel)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListFeedback pages through feedback, newest first.
// GET /api/v1/feedback?limit=&offset=
func (h *Handler) ListFeedback(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		h.respondError(c, apperrors.BadRequest("invalid limit"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		h.respondError(c, apperrors.BadRequest("invalid offset"))
		return
	}

	records, err := h.deps.Feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": records,
		"count":    len(records),
		"limit":    limit,
		"offset":   offset,
	})
}

// FeedbackStats returns the corrected count and retrain decision.
// GET /api/v1/feedback/stats?threshold=
func (h *Handler) FeedbackStats(c *gin.Context) {
	threshold := h.deps.Threshold
	if raw := c.Query("threshold"); raw != "" {
		t, err := strconv.Atoi(raw)
		if err != nil || t <= 0 {
			h.respondError(c, apperrors.BadRequest("threshold must be a positive integer"))
			return
		}
		threshold = t
	}

	decision, err := h.deps.Stats.GetFeedbackStats(c.Request.Context(), threshold)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}
