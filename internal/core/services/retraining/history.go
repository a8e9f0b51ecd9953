package retraining

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
)

// TriggerManual is recorded when a run carries no trigger
const TriggerManual = "manual"

type triggerKey struct{}

// WithTrigger tags ctx with what started the run
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger stored by WithTrigger
func TriggerFrom(ctx context.Context) string {
	if trigger, ok := ctx.Value(triggerKey{}).(string); ok && trigger != "" {
		return trigger
	}
	return TriggerManual
}

// Runner performs one retraining pass
type Runner interface {
	RetrainFromFeedback(ctx context.Context) (*Outcome, error)
}

// RunStore persists run history
type RunStore interface {
	Create(ctx context.Context, run *domain.RetrainRun) error
	LatestRetrained(ctx context.Context) (*domain.RetrainRun, error)
	List(ctx context.Context, limit int) ([]domain.RetrainRun, error)
}

// History records every run of the wrapped runner. A history write failure
// is logged and never changes the run's result.
type History struct {
	runner Runner
	store  RunStore
	logger *slog.Logger
}

// NewHistory wraps runner
func NewHistory(runner Runner, store RunStore, logger *slog.Logger) *History {
	if logger == nil {
		logger = slog.Default()
	}
	return &History{
		runner: runner,
		store:  store,
		logger: logger,
	}
}

// RetrainFromFeedback runs the wrapped runner and records the outcome
func (h *History) RetrainFromFeedback(ctx context.Context) (*Outcome, error) {
	previous, prevErr := h.store.LatestRetrained(ctx)
	if prevErr != nil {
		h.logger.Warn("failed to load previous run", slog.Any("error", prevErr))
	}

	start := time.Now()
	outcome, err := h.runner.RetrainFromFeedback(ctx)
	if outcome == nil {
		return outcome, err
	}

	run := &domain.RetrainRun{
		Trigger:       TriggerFrom(ctx),
		Status:        string(outcome.Status),
		Reason:        string(outcome.Reason),
		Stage:         string(outcome.Stage),
		FeedbackCount: outcome.FeedbackCount,
		Threshold:     outcome.Threshold,
		Rows:          outcome.Rows,
		ModelPath:     outcome.ModelPath,
		DurationMS:    time.Since(start).Milliseconds(),
	}
	if outcome.Error != nil {
		run.ErrorCode = string(outcome.Error.Code)
	}
	if outcome.Artifact != nil {
		acc := outcome.Artifact.Accuracy
		run.Accuracy = &acc
		if previous != nil && previous.Accuracy != nil {
			delta := acc - *previous.Accuracy
			run.AccuracyDelta = &delta
		}
	}

	// The run has already happened; record it even if the caller went away.
	if storeErr := h.store.Create(context.WithoutCancel(ctx), run); storeErr != nil {
		h.logger.Error("failed to record retrain run",
			slog.String("status", run.Status),
			slog.Any("error", storeErr))
	}

	return outcome, err
}

// Runs returns the most recent runs, newest first
func (h *History) Runs(ctx context.Context, limit int) ([]domain.RetrainRun, error) {
	return h.store.List(ctx, limit)
}
