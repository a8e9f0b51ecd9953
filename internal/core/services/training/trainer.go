package training

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/ml"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"gorm.io/datatypes"
)

// maxVersionAttempts bounds retries when a versioned model file already exists
const maxVersionAttempts = 5

// TableLoader parses a dataset file into a table
type TableLoader interface {
	ParseFile(ctx context.Context, filePath string) (*parsers.Table, error)
}

// ModelFileStore writes serialized models without overwriting
type ModelFileStore interface {
	SaveModel(ctx context.Context, name string, version int64, data []byte) (string, error)
	RemoveFile(path string) error
}

// Registry records model artifacts
type Registry interface {
	Create(ctx context.Context, artifact *domain.ModelArtifact) error
	CountByName(ctx context.Context, name string) (int64, error)
}

// Config tunes the classifier
type Config struct {
	Trees int
	// Seed fixes the split and the forest when set
	Seed *int64
}

// Trainer fits a classifier on a dataset file and publishes the artifact
type Trainer struct {
	loader   TableLoader
	files    ModelFileStore
	registry Registry
	config   Config
	logger   *slog.Logger
}

// NewTrainer creates a new trainer
func NewTrainer(loader TableLoader, files ModelFileStore, registry Registry, config Config, logger *slog.Logger) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		loader:   loader,
		files:    files,
		registry: registry,
		config:   config,
		logger:   logger,
	}
}

// LabeledRows drops rows whose last cell (the target) is blank
func LabeledRows(table *parsers.Table) [][]string {
	last := len(table.Columns) - 1
	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if strings.TrimSpace(row[last]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// TrainAndSave loads the dataset, treats its last column as the target,
// fits on a random 80/20 split and records holdout accuracy. The model is
// written to a new versioned file and then registered; a failure at either
// step leaves earlier artifacts untouched.
func (t *Trainer) TrainAndSave(ctx context.Context, datasetPath string) (*domain.ModelArtifact, error) {
	table, err := t.loader.ParseFile(ctx, datasetPath)
	if err != nil {
		return nil, apperrors.DatasetError("failed to load dataset", err).
			WithDetails("path", datasetPath)
	}

	if len(table.Columns) < 2 {
		return nil, apperrors.InsufficientColumns(len(table.Columns))
	}

	rows := LabeledRows(table)
	if len(rows) < 2 {
		return nil, apperrors.DatasetError("dataset needs at least 2 rows with a target value", nil).
			WithDetails("labeled_rows", len(rows))
	}

	params := ml.DefaultForestParams()
	if t.config.Trees > 0 {
		params.Trees = t.config.Trees
	}

	model, err := ml.Train(table.Columns, rows, ml.Options{Forest: params, Seed: t.config.Seed})
	if err != nil {
		return nil, apperrors.TrainingFailure(err)
	}

	data, err := model.Marshal()
	if err != nil {
		return nil, apperrors.PersistenceFailure("model file", err)
	}

	name := domain.ModelNameForDataset(datasetPath)
	path, err := t.saveNextVersion(ctx, name, data)
	if err != nil {
		return nil, err
	}

	features, _ := json.Marshal(model.Features())
	artifact := &domain.ModelArtifact{
		Name:          name,
		Accuracy:      model.Accuracy,
		FilePath:      path,
		SourceDataset: filepath.Base(datasetPath),
		TrainRows:     model.TrainRows,
		TestRows:      model.TestRows,
		Features:      datatypes.JSON(features),
	}

	if err := t.registry.Create(ctx, artifact); err != nil {
		if rmErr := t.files.RemoveFile(path); rmErr != nil {
			t.logger.Warn("failed to remove unregistered model file",
				slog.String("path", path),
				slog.Any("error", rmErr))
		}
		if apperrors.HasCode(err, apperrors.ErrCodePersistenceFailure) {
			return nil, err
		}
		return nil, apperrors.PersistenceFailure("model metadata", err)
	}

	t.logger.Info("model trained",
		slog.String("name", name),
		slog.String("path", path),
		slog.Float64("accuracy", model.Accuracy),
		slog.Int("train_rows", model.TrainRows),
		slog.Int("test_rows", model.TestRows),
		slog.Int("classes", len(model.Classes)))

	return artifact, nil
}

func (t *Trainer) saveNextVersion(ctx context.Context, name string, data []byte) (string, error) {
	count, err := t.registry.CountByName(ctx, name)
	if err != nil {
		return "", apperrors.PersistenceFailure("model file", err)
	}

	version := count + 1
	for attempt := 0; attempt < maxVersionAttempts; attempt++ {
		path, err := t.files.SaveModel(ctx, name, version, data)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, storage.ErrFileExists) {
			return "", apperrors.PersistenceFailure("model file", err)
		}
		version++
	}

	return "", apperrors.PersistenceFailure("model file", storage.ErrFileExists).
		WithDetails("name", name)
}
