package feedback

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
)

// CorrectionCounter observes accepted corrections
type CorrectionCounter interface {
	Inc()
}

// Recorder logs served predictions and user corrections
type Recorder struct {
	store       Store
	corrections CorrectionCounter
	logger      *slog.Logger
}

// NewRecorder creates a new recorder; corrections may be nil
func NewRecorder(store Store, corrections CorrectionCounter, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:       store,
		corrections: corrections,
		logger:      logger,
	}
}

// Record stores one prediction. input must be a JSON object; correction may be nil.
func (r *Recorder) Record(ctx context.Context, modelName string, input map[string]interface{}, prediction string, correction *string) (*domain.FeedbackRecord, error) {
	if input == nil {
		return nil, apperrors.BadRequest("input must be a JSON object")
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, apperrors.BadRequest("input is not JSON-encodable")
	}

	record := &domain.FeedbackRecord{
		ModelName:      modelName,
		InputData:      string(encoded),
		Prediction:     prediction,
		UserCorrection: correction,
	}

	if err := r.store.Insert(ctx, record); err != nil {
		return nil, err
	}

	if correction != nil {
		r.countCorrection()
	}

	return record, nil
}

// Correct attaches or overwrites the correction of an existing record
func (r *Recorder) Correct(ctx context.Context, id uint, label string) (*domain.FeedbackRecord, error) {
	if err := r.store.SetCorrection(ctx, id, label); err != nil {
		return nil, err
	}

	r.countCorrection()

	r.logger.Info("feedback corrected",
		slog.Uint64("feedback_id", uint64(id)))

	return r.store.GetByID(ctx, id)
}

// List returns a page of feedback records
func (r *Recorder) List(ctx context.Context, limit, offset int) ([]domain.FeedbackRecord, error) {
	return r.store.List(ctx, limit, offset)
}

func (r *Recorder) countCorrection() {
	if r.corrections != nil {
		r.corrections.Inc()
	}
}
