package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/ml"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultModelCacheSize is the number of decoded models kept in memory
const DefaultModelCacheSize = 8

// ModelLookup resolves the latest artifact for a model name
type ModelLookup interface {
	LatestByName(ctx context.Context, name string) (*domain.ModelArtifact, error)
}

// ModelReader reads serialized model files
type ModelReader interface {
	ReadModel(ctx context.Context, path string) ([]byte, error)
}

// FeedbackRecorder logs predictions and corrections
type FeedbackRecorder interface {
	Record(ctx context.Context, modelName string, input map[string]interface{}, prediction string, correction *string) (*domain.FeedbackRecord, error)
	Correct(ctx context.Context, id uint, label string) (*domain.FeedbackRecord, error)
}

// PredictionCounter counts served predictions per model
type PredictionCounter interface {
	IncPrediction(model string)
}

// Result is one served prediction
type Result struct {
	Prediction string `json:"prediction"`
	FeedbackID uint   `json:"feedback_id"`
	ModelName  string `json:"model_name"`
	ModelPath  string `json:"model_path"`
	Correction string `json:"correction,omitempty"`
}

// Service serves predictions from the latest registered model and logs
// every prediction as feedback
type Service struct {
	lookup   ModelLookup
	reader   ModelReader
	recorder FeedbackRecorder
	counter  PredictionCounter
	logger   *slog.Logger

	// keyed by file path; model files are immutable
	models *lru.Cache[string, *ml.Model]
}

// NewService creates a new prediction service; counter may be nil.
// cacheSize bounds the decoded models held in memory.
func NewService(lookup ModelLookup, reader ModelReader, recorder FeedbackRecorder, counter PredictionCounter, cacheSize int, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultModelCacheSize
	}

	models, err := lru.New[string, *ml.Model](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}

	return &Service{
		lookup:   lookup,
		reader:   reader,
		recorder: recorder,
		counter:  counter,
		logger:   logger,
		models:   models,
	}, nil
}

// Predict classifies input with the latest model named modelName and logs
// the prediction with no correction
func (s *Service) Predict(ctx context.Context, modelName string, input map[string]interface{}) (*Result, error) {
	return s.predictAndRecord(ctx, modelName, input, nil)
}

// SubmitFeedback classifies input and logs it together with the correct label
func (s *Service) SubmitFeedback(ctx context.Context, modelName string, input map[string]interface{}, correctLabel string) (*Result, error) {
	if strings.TrimSpace(correctLabel) == "" {
		return nil, apperrors.BadRequest("correct_label is required")
	}
	return s.predictAndRecord(ctx, modelName, input, &correctLabel)
}

// Correct attaches a label to a previously logged prediction
func (s *Service) Correct(ctx context.Context, feedbackID uint, label string) (*domain.FeedbackRecord, error) {
	if strings.TrimSpace(label) == "" {
		return nil, apperrors.BadRequest("correct_label is required")
	}
	return s.recorder.Correct(ctx, feedbackID, label)
}

func (s *Service) predictAndRecord(ctx context.Context, modelName string, input map[string]interface{}, correction *string) (*Result, error) {
	if modelName == "" {
		return nil, apperrors.BadRequest("model_name is required")
	}
	if input == nil {
		return nil, apperrors.BadRequest("input must be a JSON object")
	}

	artifact, err := s.lookup.LatestByName(ctx, modelName)
	if err != nil {
		return nil, err
	}

	model, err := s.load(ctx, artifact.FilePath)
	if err != nil {
		return nil, err
	}

	record := make(map[string]string, len(input))
	for k, v := range input {
		record[k] = parsers.FormatCell(v)
	}

	label, err := model.Predict(record)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "prediction failed")
	}

	if s.counter != nil {
		s.counter.IncPrediction(modelName)
	}

	logged, err := s.recorder.Record(ctx, modelName, input, label, correction)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Prediction: label,
		FeedbackID: logged.ID,
		ModelName:  modelName,
		ModelPath:  artifact.FilePath,
	}
	if correction != nil {
		result.Correction = *correction
	}
	return result, nil
}

func (s *Service) load(ctx context.Context, path string) (*ml.Model, error) {
	if model, ok := s.models.Get(path); ok {
		return model, nil
	}

	data, err := s.reader.ReadModel(ctx, path)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to read model file").WithDetails("path", path)
	}

	model, err := ml.UnmarshalModel(data)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to decode model file").WithDetails("path", path)
	}

	if evicted := s.models.Add(path, model); evicted {
		s.logger.Debug("model cache full, evicted least recently used entry")
	}

	s.logger.Debug("model loaded", slog.String("path", path), slog.Int("cached", s.models.Len()))
	return model, nil
}
