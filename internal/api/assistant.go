package api

import (
	"net/http"

	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Question string `json:"question" binding:"required"`
	Dataset  string `json:"dataset"`
}

type suggestRequest struct {
	Task string `json:"task" binding:"required"`
}

// AssistantChat answers a question, optionally about a stored dataset.
// POST /api/v1/assistant/chat
func (h *Handler) AssistantChat(c *gin.Context) {
	if h.deps.Assistant == nil {
		h.respondError(c, apperrors.Disabled("assistant"))
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	answer, err := h.deps.Assistant.Chat(c.Request.Context(), req.Question, req.Dataset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// AssistantSuggest returns preprocessing suggestions for a task.
// POST /api/v1/assistant/suggest
func (h *Handler) AssistantSuggest(c *gin.Context) {
	if h.deps.Assistant == nil {
		h.respondError(c, apperrors.Disabled("assistant"))
		return
	}

	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperrors.BadRequest(err.Error()))
		return
	}

	answer, err := h.deps.Assistant.Suggest(c.Request.Context(), req.Task)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
