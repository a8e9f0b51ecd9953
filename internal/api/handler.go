package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/services/assistant"
	"github.com/alejandroruanova/automl-service/internal/core/services/datasets"
	"github.com/alejandroruanova/automl-service/internal/core/services/prediction"
	"github.com/alejandroruanova/automl-service/internal/core/services/profiling"
	"github.com/alejandroruanova/automl-service/internal/core/services/retraining"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// DatasetService manages uploaded datasets
type DatasetService interface {
	Upload(ctx context.Context, filename string, reader io.Reader) (*datasets.UploadResult, error)
	Get(ctx context.Context, filename string) (*domain.Dataset, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	Profile(ctx context.Context, filename string) (*profiling.Profile, error)
	Train(ctx context.Context, filename string) (*domain.ModelArtifact, error)
	Clean(ctx context.Context, filename, column, version string) (*datasets.CleanResult, error)
}

// PredictionService serves predictions and records feedback
type PredictionService interface {
	Predict(ctx context.Context, modelName string, input map[string]interface{}) (*prediction.Result, error)
	SubmitFeedback(ctx context.Context, modelName string, input map[string]interface{}, correctLabel string) (*prediction.Result, error)
	Correct(ctx context.Context, feedbackID uint, label string) (*domain.FeedbackRecord, error)
}

// FeedbackLister pages through stored feedback
type FeedbackLister interface {
	List(ctx context.Context, limit, offset int) ([]domain.FeedbackRecord, error)
}

// FeedbackStats computes the retraining decision
type FeedbackStats interface {
	GetFeedbackStats(ctx context.Context, threshold int) (domain.RetrainDecision, error)
}

// Retrainer runs the feedback retraining loop synchronously
type Retrainer interface {
	RetrainFromFeedback(ctx context.Context) (*retraining.Outcome, error)
}

// RunHistory lists past retraining runs
type RunHistory interface {
	Runs(ctx context.Context, limit int) ([]domain.RetrainRun, error)
}

// RetrainQueue enqueues a background retraining run
type RetrainQueue interface {
	EnqueueRetrain(ctx context.Context, trigger string) (string, error)
}

// ModelRegistry reads registered model artifacts
type ModelRegistry interface {
	List(ctx context.Context) ([]domain.ModelArtifact, error)
	LatestByName(ctx context.Context, name string) (*domain.ModelArtifact, error)
}

// Assistant answers questions through a language model
type Assistant interface {
	Chat(ctx context.Context, question, dataset string) (*assistant.Answer, error)
	Suggest(ctx context.Context, task string) (*assistant.Answer, error)
}

// HealthCheck reports the status of one dependency; "status" must be "up" or "down"
type HealthCheck func(ctx context.Context) map[string]interface{}

// Dependencies wires the handler. Queue and Assistant may be nil.
type Dependencies struct {
	Datasets     DatasetService
	Predictions  PredictionService
	Feedback     FeedbackLister
	Stats        FeedbackStats
	Retrainer    Retrainer
	Runs         RunHistory
	Queue        RetrainQueue
	Models       ModelRegistry
	Assistant    Assistant
	HealthChecks map[string]HealthCheck

	Threshold       int
	MaxUploadSizeMB int64
}

// Handler serves the HTTP API
type Handler struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Threshold <= 0 {
		deps.Threshold = domain.DefaultRetrainThreshold
	}

	return &Handler{
		deps:   deps,
		logger: logger,
	}
}

// RegisterRoutes mounts every API route on r
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")

	ds := v1.Group("/datasets")
	ds.POST("", h.UploadDataset)
	ds.GET("", h.ListDatasets)
	ds.GET("/:name", h.GetDataset)
	ds.GET("/:name/eda", h.ProfileDataset)
	ds.POST("/:name/train", h.TrainDataset)
	ds.POST("/:name/clean", h.CleanDataset)
	v1.GET("/cleaners", h.ListCleaners)

	v1.POST("/predict", h.Predict)
	v1.POST("/predict/feedback", h.SubmitFeedback)

	fb := v1.Group("/feedback")
	fb.GET("", h.ListFeedback)
	fb.GET("/stats", h.FeedbackStats)
	fb.PUT("/:id/correction", h.CorrectFeedback)

	v1.POST("/retrain", h.Retrain)
	v1.POST("/retrain/async", h.RetrainAsync)
	v1.GET("/retrain/runs", h.ListRetrainRuns)

	v1.GET("/models", h.ListModels)
	v1.GET("/models/:name", h.GetModel)

	v1.POST("/assistant/chat", h.AssistantChat)
	v1.POST("/assistant/suggest", h.AssistantSuggest)
}

// respondError renders err as {"error": {"code", "message", "details"}}
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		appErr = apperrors.InternalWrap(err, "internal server error")
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("code", string(appErr.Code)),
			slog.Any("error", err))
	}

	c.JSON(appErr.StatusCode, gin.H{"error": appErr})
}

// Health reports the status of every registered dependency
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]interface{}, len(h.deps.HealthChecks))

	for name, check := range h.deps.HealthChecks {
		result := check(c.Request.Context())
		if result["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		checks[name] = result
	}

	overall := "up"
	if status != http.StatusOK {
		overall = "down"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}
