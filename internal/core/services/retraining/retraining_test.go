package retraining

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/services/feedback"
	"github.com/alejandroruanova/automl-service/internal/core/services/training"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryFeedback implements feedback.Store in memory
type memoryFeedback struct {
	records []domain.FeedbackRecord
	err     error
}

func (m *memoryFeedback) add(input, prediction string, correction *string) {
	m.records = append(m.records, domain.FeedbackRecord{
		ID:             uint(len(m.records) + 1),
		InputData:      input,
		Prediction:     prediction,
		UserCorrection: correction,
	})
}

func (m *memoryFeedback) Insert(ctx context.Context, r *domain.FeedbackRecord) error {
	m.add(r.InputData, r.Prediction, r.UserCorrection)
	r.ID = uint(len(m.records))
	return nil
}

func (m *memoryFeedback) SetCorrection(ctx context.Context, id uint, c string) error {
	return errors.New("not used")
}

func (m *memoryFeedback) GetByID(ctx context.Context, id uint) (*domain.FeedbackRecord, error) {
	return nil, errors.New("not used")
}

func (m *memoryFeedback) CountCorrected(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, r := range m.records {
		if r.UserCorrection != nil {
			n++
		}
	}
	return n, nil
}

func (m *memoryFeedback) ListCorrected(ctx context.Context) ([]domain.FeedbackRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.FeedbackRecord
	for _, r := range m.records {
		if r.UserCorrection != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryFeedback) List(ctx context.Context, limit, offset int) ([]domain.FeedbackRecord, error) {
	return m.records, nil
}

type memoryRegistry struct {
	artifacts []domain.ModelArtifact
}

func (m *memoryRegistry) Create(ctx context.Context, a *domain.ModelArtifact) error {
	a.ID = uint(len(m.artifacts) + 1)
	m.artifacts = append(m.artifacts, *a)
	return nil
}

func (m *memoryRegistry) CountByName(ctx context.Context, name string) (int64, error) {
	var n int64
	for _, a := range m.artifacts {
		if a.Name == name {
			n++
		}
	}
	return n, nil
}

// spyTrainer records calls
type spyTrainer struct {
	calls []string
	err   error
}

func (s *spyTrainer) TrainAndSave(ctx context.Context, path string) (*domain.ModelArtifact, error) {
	s.calls = append(s.calls, path)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ModelArtifact{Name: "feedback_retrain_rf_model", FilePath: "/models/x_v1.json", Accuracy: 1}, nil
}

type spyObserver struct {
	statuses []string
	accuracy map[string]float64
}

func (s *spyObserver) ObserveRetrain(status string, d time.Duration) {
	s.statuses = append(s.statuses, status)
}

func (s *spyObserver) ObserveModelAccuracy(model string, acc float64) {
	if s.accuracy == nil {
		s.accuracy = map[string]float64{}
	}
	s.accuracy[model] = acc
}

func strPtr(s string) *string { return &s }

func newStorage(t *testing.T) *storage.LocalStorage {
	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: t.TempDir()}, logger.Discard())
	require.NoError(t, err)
	return store
}

func TestBuilder_ColumnsAndValues(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`{"b": 2, "a": 1.5, "flag": true}`, "x", strPtr("y"))
	fb.add(`{"a": null, "c": "text, with comma", "nested": {"k": [1, 2]}}`, "x", strPtr("z"))
	fb.add(`{"a": 3}`, "x", nil)

	store := newStorage(t)
	result, err := NewBuilder(fb, store, logger.Discard()).Build(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Empty)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, []string{"a", "b", "c", "flag", "nested", "target"}, result.Columns)
	assert.Equal(t, store.RetrainDatasetPath(), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	expected := "a,b,c,flag,nested,target\n" +
		"1.5,2,,true,,y\n" +
		`,,"text, with comma",,"{""k"":[1,2]}",z` + "\n"
	assert.Equal(t, expected, string(data))
}

func TestBuilder_RoundTrip(t *testing.T) {
	fb := &memoryFeedback{}
	for i := 0; i < 7; i++ {
		fb.add(fmt.Sprintf(`{"f1": %d, "f2": "v%d"}`, i, i), "p", strPtr(fmt.Sprintf("label%d", i)))
	}

	store := newStorage(t)
	result, err := NewBuilder(fb, store, logger.Discard()).Build(context.Background())
	require.NoError(t, err)

	table, err := parsers.NewParserFactory(nil).ParseFile(context.Background(), result.Path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 7)
	for i, row := range table.Rows {
		assert.Equal(t, []string{fmt.Sprintf("%d", i), fmt.Sprintf("v%d", i), fmt.Sprintf("label%d", i)}, row)
	}
}

func TestBuilder_KeepsLargeIntegers(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`{"account_id": 9007199254740993, "amount": 0.1, "exp": 1e21}`, "n", strPtr("y"))

	result, err := NewBuilder(fb, newStorage(t), logger.Discard()).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "account_id,amount,exp,target\n9007199254740993,0.1,1e21,y\n", string(data))
}

func TestBuilder_Idempotent(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`{"z": 1, "a": "q"}`, "x", strPtr("y"))
	fb.add(`{"m": 0.1}`, "x", strPtr("w"))

	store := newStorage(t)
	builder := NewBuilder(fb, store, logger.Discard())

	first, err := builder.Build(context.Background())
	require.NoError(t, err)
	firstBytes, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := builder.Build(context.Background())
	require.NoError(t, err)
	secondBytes, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	assert.Equal(t, firstBytes, secondBytes)
}

func TestBuilder_SkipsMalformedRecords(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`not json`, "x", strPtr("y"))
	fb.add(`[1,2]`, "x", strPtr("y"))
	fb.add(`null`, "x", strPtr("y"))
	fb.add(`{"a": 1}`, "x", strPtr("y"))

	result, err := NewBuilder(fb, newStorage(t), logger.Discard()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, 3, result.SkippedRecords)
}

func TestBuilder_EmptyWritesNothing(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`garbage`, "x", strPtr("y"))

	store := newStorage(t)
	result, err := NewBuilder(fb, store, logger.Discard()).Build(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Empty)
	assert.Empty(t, result.Path)
	_, err = os.Stat(store.RetrainDatasetPath())
	assert.True(t, os.IsNotExist(err))
}

func TestBuilder_TargetKeyInInputIsReplaced(t *testing.T) {
	fb := &memoryFeedback{}
	fb.add(`{"a": 1, "target": "stale"}`, "x", strPtr("fresh"))

	result, err := NewBuilder(fb, newStorage(t), logger.Discard()).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "target"}, result.Columns)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "a,target\n1,fresh\n", string(data))
}

func TestBuilder_StoreUnavailable(t *testing.T) {
	fb := &memoryFeedback{err: apperrors.StoreUnavailable(errors.New("down"))}

	_, err := NewBuilder(fb, newStorage(t), logger.Discard()).Build(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))
}

func newOrchestrator(fb *memoryFeedback, store *storage.LocalStorage, trainer ModelTrainer, observer Observer) *Orchestrator {
	return NewOrchestrator(
		feedback.NewAggregator(fb, logger.Discard()),
		NewBuilder(fb, store, logger.Discard()),
		trainer,
		5,
		observer,
		logger.Discard(),
	)
}

func TestOrchestrator_InsufficientFeedback(t *testing.T) {
	fb := &memoryFeedback{}
	for i := 0; i < 4; i++ {
		fb.add(`{"a": 1}`, "x", strPtr("y"))
	}
	trainer := &spyTrainer{}
	observer := &spyObserver{}

	outcome, err := newOrchestrator(fb, newStorage(t), trainer, observer).RetrainFromFeedback(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonInsufficientFeedback, outcome.Reason)
	assert.Equal(t, int64(4), outcome.FeedbackCount)
	assert.Equal(t, 5, outcome.Threshold)
	assert.Empty(t, trainer.calls)
	assert.Equal(t, []string{"skipped"}, observer.statuses)
}

func TestOrchestrator_EmptyDatasetSkipsTraining(t *testing.T) {
	fb := &memoryFeedback{}
	for i := 0; i < 6; i++ {
		fb.add(`{broken`, "x", strPtr("y"))
	}
	trainer := &spyTrainer{}

	outcome, err := newOrchestrator(fb, newStorage(t), trainer, nil).RetrainFromFeedback(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, ReasonEmptyDataset, outcome.Reason)
	assert.Equal(t, 6, outcome.SkippedRecords)
	assert.Empty(t, trainer.calls)
}

func TestOrchestrator_FailureStages(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		stage Stage
		code  apperrors.ErrorCode
	}{
		{"training", apperrors.TrainingFailure(errors.New("boom")), StageTrain, apperrors.ErrCodeTrainingFailure},
		{"columns", apperrors.InsufficientColumns(1), StageTrain, apperrors.ErrCodeInsufficientColumns},
		{"persistence", apperrors.PersistenceFailure("model file", errors.New("disk full")), StagePublish, apperrors.ErrCodePersistenceFailure},
		{"plain error", errors.New("unexpected"), StageTrain, apperrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &memoryFeedback{}
			for i := 0; i < 5; i++ {
				fb.add(`{"a": 1}`, "x", strPtr("y"))
			}
			observer := &spyObserver{}

			outcome, err := newOrchestrator(fb, newStorage(t), &spyTrainer{err: tt.err}, observer).RetrainFromFeedback(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code))
			assert.Equal(t, StatusFailed, outcome.Status)
			assert.Equal(t, tt.stage, outcome.Stage)
			assert.Equal(t, tt.code, outcome.Error.Code)
			assert.Equal(t, []string{"failed"}, observer.statuses)
		})
	}
}

func TestOrchestrator_DecideFailure(t *testing.T) {
	fb := &memoryFeedback{err: apperrors.StoreUnavailable(errors.New("down"))}

	outcome, err := newOrchestrator(fb, newStorage(t), &spyTrainer{}, nil).RetrainFromFeedback(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))
	assert.Equal(t, StageDecide, outcome.Stage)
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	fb := &memoryFeedback{}
	for i := 0; i < 5; i++ {
		fb.add(`{"a": 1, "b": 2}`, "x", strPtr("y"))
	}

	store := newStorage(t)
	registry := &memoryRegistry{}
	seed := int64(5)
	trainer := training.NewTrainer(parsers.NewParserFactory(nil), store, registry, training.Config{Trees: 10, Seed: &seed}, logger.Discard())
	observer := &spyObserver{}
	orchestrator := newOrchestrator(fb, store, trainer, observer)

	outcome, err := orchestrator.RetrainFromFeedback(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusRetrained, outcome.Status)
	assert.Equal(t, 5, outcome.Rows)
	require.NotNil(t, outcome.Artifact)
	assert.Equal(t, "feedback_retrain_rf_model", outcome.Artifact.Name)
	assert.Equal(t, outcome.Artifact.FilePath, outcome.ModelPath)
	assert.GreaterOrEqual(t, outcome.Artifact.Accuracy, 0.0)
	assert.LessOrEqual(t, outcome.Artifact.Accuracy, 1.0)
	assert.Equal(t, 4, outcome.Artifact.TrainRows)
	assert.Equal(t, 1, outcome.Artifact.TestRows)
	assert.Contains(t, observer.accuracy, "feedback_retrain_rf_model")

	data, err := os.ReadFile(store.RetrainDatasetPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "a,b,target", lines[0])
	for _, line := range lines[1:] {
		assert.Equal(t, "1,2,y", line)
	}

	second, err := orchestrator.RetrainFromFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusRetrained, second.Status)
	assert.NotEqual(t, outcome.ModelPath, second.ModelPath)
	assert.Len(t, registry.artifacts, 2)

	_, err = os.Stat(outcome.ModelPath)
	assert.NoError(t, err, "earlier artifact must survive")
}
