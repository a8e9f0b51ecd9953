package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/services/retraining"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/queue"
	"github.com/hibiken/asynq"
)

// Retrainer runs one feedback retraining pass
type Retrainer interface {
	RetrainFromFeedback(ctx context.Context) (*retraining.Outcome, error)
}

// RetrainHandler processes retrain:feedback tasks
type RetrainHandler struct {
	retrainer Retrainer
	logger    *slog.Logger
}

// NewRetrainHandler creates a new handler
func NewRetrainHandler(retrainer Retrainer, logger *slog.Logger) *RetrainHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrainHandler{
		retrainer: retrainer,
		logger:    logger,
	}
}

// ProcessTask implements asynq.Handler. A failed run is logged and
// acknowledged; the next trigger retries from the current feedback.
func (h *RetrainHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseRetrainFeedbackPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	logger := h.logger.With(slog.String("trigger", payload.Trigger))
	if !payload.RequestedAt.IsZero() {
		logger = logger.With(slog.Duration("queued_for", time.Since(payload.RequestedAt)))
	}

	outcome, err := h.retrainer.RetrainFromFeedback(retraining.WithTrigger(ctx, payload.Trigger))
	if err != nil {
		attrs := []any{slog.Any("error", err)}
		if outcome != nil {
			attrs = append(attrs, slog.String("stage", string(outcome.Stage)))
		}
		logger.Error("retraining task failed", attrs...)
		return nil
	}

	switch outcome.Status {
	case retraining.StatusRetrained:
		logger.Info("retraining task completed",
			slog.String("model_path", outcome.ModelPath),
			slog.Int("rows", outcome.Rows))
	default:
		logger.Info("retraining task skipped",
			slog.String("reason", string(outcome.Reason)),
			slog.Int64("feedback_count", outcome.FeedbackCount),
			slog.Int("threshold", outcome.Threshold))
	}

	return nil
}

// LoggingMiddleware logs the start and duration of every task
func LoggingMiddleware(logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			start := time.Now()
			taskID, _ := asynq.GetTaskID(ctx)

			logger.Info("task started",
				slog.String("task_id", taskID),
				slog.String("task_type", task.Type()))

			err := next.ProcessTask(ctx, task)

			logger.Info("task finished",
				slog.String("task_id", taskID),
				slog.String("task_type", task.Type()),
				slog.Duration("duration", time.Since(start)),
				slog.Bool("failed", err != nil))

			return err
		})
	}
}
