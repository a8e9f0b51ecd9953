package retraining

import (
	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// Status of a retraining run
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusRetrained Status = "retrained"
	StatusFailed    Status = "failed"
)

// Reason explains a skipped run
type Reason string

const (
	ReasonInsufficientFeedback Reason = "insufficient_feedback"
	ReasonEmptyDataset         Reason = "empty_dataset"
)

// Stage names the step a failed run stopped at
type Stage string

const (
	StageDecide  Stage = "decide"
	StageBuild   Stage = "build"
	StageTrain   Stage = "train"
	StagePublish Stage = "publish"
)

// Outcome is the result of one RetrainFromFeedback call
type Outcome struct {
	Status         Status                `json:"status"`
	Reason         Reason                `json:"reason,omitempty"`
	Stage          Stage                 `json:"stage,omitempty"`
	FeedbackCount  int64                 `json:"feedback_count"`
	Threshold      int                   `json:"threshold"`
	Rows           int                   `json:"rows,omitempty"`
	SkippedRecords int                   `json:"skipped_records,omitempty"`
	ModelPath      string                `json:"model_path,omitempty"`
	Artifact       *domain.ModelArtifact `json:"artifact,omitempty"`
	Error          *apperrors.AppError   `json:"error,omitempty"`
}
