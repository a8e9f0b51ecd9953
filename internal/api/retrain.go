package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alejandroruanova/automl-service/internal/core/services/retraining"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/queue"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

const triggerHTTP = "http"

// Retrain runs the feedback retraining loop and returns its outcome. A
// failed run responds with the error status and still includes the outcome.
// POST /api/v1/retrain
func (h *Handler) Retrain(c *gin.Context) {
	ctx := retraining.WithTrigger(c.Request.Context(), triggerHTTP)
	outcome, err := h.deps.Retrainer.RetrainFromFeedback(ctx)
	if err != nil {
		if outcome == nil {
			h.respondError(c, err)
			return
		}
		appErr, ok := apperrors.GetAppError(err)
		if !ok {
			appErr = apperrors.InternalWrap(err, "retraining failed")
		}
		h.logger.Error("retraining failed",
			slog.String("stage", string(outcome.Stage)),
			slog.Any("error", err))
		c.JSON(appErr.StatusCode, gin.H{"error": appErr, "outcome": outcome})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// RetrainAsync enqueues a retraining run for the worker.
// POST /api/v1/retrain/async
func (h *Handler) RetrainAsync(c *gin.Context) {
	if h.deps.Queue == nil {
		h.respondError(c, apperrors.Disabled("async retraining"))
		return
	}

	taskID, err := h.deps.Queue.EnqueueRetrain(c.Request.Context(), queue.TriggerAPI)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": taskID,
		"status":  "enqueued",
	})
}

// ListModels returns every registered artifact, newest first.
// GET /api/v1/models
func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.deps.Models.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": models,
		"count":  len(models),
	})
}

// GetModel returns the latest artifact registered under a name.
// GET /api/v1/models/:name
func (h *Handler) GetModel(c *gin.Context) {
	artifact, err := h.deps.Models.LatestByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, artifact)
}

// ListRetrainRuns returns recent retraining runs, newest first.
// GET /api/v1/retrain/runs?limit=
func (h *Handler) ListRetrainRuns(c *gin.Context) {
	if h.deps.Runs == nil {
		h.respondError(c, apperrors.Disabled("retraining history"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		h.respondError(c, apperrors.BadRequest("invalid limit"))
		return
	}

	runs, err := h.deps.Runs.Runs(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}
