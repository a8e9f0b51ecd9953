package retraining

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// Decider reports whether enough feedback has accumulated
type Decider interface {
	GetFeedbackStats(ctx context.Context, threshold int) (domain.RetrainDecision, error)
}

// DatasetBuilder rebuilds the feedback dataset
type DatasetBuilder interface {
	Build(ctx context.Context) (*BuildResult, error)
}

// ModelTrainer fits and registers a model from a dataset file
type ModelTrainer interface {
	TrainAndSave(ctx context.Context, datasetPath string) (*domain.ModelArtifact, error)
}

// Observer receives run metrics
type Observer interface {
	ObserveRetrain(status string, duration time.Duration)
	ObserveModelAccuracy(model string, accuracy float64)
}

// Orchestrator runs decide, build, train and publish in order. Nothing is
// rolled back on failure and concurrent runs are not serialized; the last
// writer of the dataset file wins.
type Orchestrator struct {
	decider   Decider
	builder   DatasetBuilder
	trainer   ModelTrainer
	threshold int
	observer  Observer
	logger    *slog.Logger
}

// NewOrchestrator creates a new orchestrator; observer may be nil
func NewOrchestrator(decider Decider, builder DatasetBuilder, trainer ModelTrainer, threshold int, observer Observer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		decider:   decider,
		builder:   builder,
		trainer:   trainer,
		threshold: threshold,
		observer:  observer,
		logger:    logger,
	}
}

// RetrainFromFeedback retrains when the corrected-feedback threshold is met.
// A failed run returns both the outcome (with its Stage) and the error.
func (o *Orchestrator) RetrainFromFeedback(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	outcome, err := o.run(ctx)
	if o.observer != nil {
		o.observer.ObserveRetrain(string(outcome.Status), time.Since(start))
	}
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context) (*Outcome, error) {
	decision, err := o.decider.GetFeedbackStats(ctx, o.threshold)
	if err != nil {
		return o.fail(&Outcome{}, StageDecide, err)
	}

	outcome := &Outcome{
		FeedbackCount: decision.FeedbackCount,
		Threshold:     decision.Threshold,
	}

	if !decision.ShouldRetrain {
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonInsufficientFeedback
		o.logger.Info("retraining skipped",
			slog.String("reason", string(outcome.Reason)),
			slog.Int64("feedback_count", decision.FeedbackCount),
			slog.Int("threshold", decision.Threshold))
		return outcome, nil
	}

	built, err := o.builder.Build(ctx)
	if err != nil {
		return o.fail(outcome, StageBuild, err)
	}
	outcome.Rows = built.Rows
	outcome.SkippedRecords = built.SkippedRecords

	if built.Empty {
		outcome.Status = StatusSkipped
		outcome.Reason = ReasonEmptyDataset
		o.logger.Info("retraining skipped",
			slog.String("reason", string(outcome.Reason)),
			slog.Int("skipped_records", built.SkippedRecords))
		return outcome, nil
	}

	artifact, err := o.trainer.TrainAndSave(ctx, built.Path)
	if err != nil {
		stage := StageTrain
		if apperrors.HasCode(err, apperrors.ErrCodePersistenceFailure) {
			stage = StagePublish
		}
		return o.fail(outcome, stage, err)
	}

	outcome.Status = StatusRetrained
	outcome.ModelPath = artifact.FilePath
	outcome.Artifact = artifact

	if o.observer != nil {
		o.observer.ObserveModelAccuracy(artifact.Name, artifact.Accuracy)
	}

	o.logger.Info("model retrained from feedback",
		slog.String("model", artifact.Name),
		slog.String("path", artifact.FilePath),
		slog.Float64("accuracy", artifact.Accuracy),
		slog.Int("rows", built.Rows))

	return outcome, nil
}

func (o *Orchestrator) fail(outcome *Outcome, stage Stage, err error) (*Outcome, error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		appErr = apperrors.InternalWrap(err, "retraining failed")
	}

	outcome.Status = StatusFailed
	outcome.Stage = stage
	outcome.Error = appErr

	o.logger.Error("retraining failed",
		slog.String("stage", string(stage)),
		slog.String("code", string(appErr.Code)),
		slog.Any("error", err))

	return outcome, appErr
}
