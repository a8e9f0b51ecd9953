package datasets

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/core/services/profiling"
	"github.com/alejandroruanova/automl-service/internal/core/services/refinery"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultCleaner is the refinery version used when none is requested
const DefaultCleaner = "v1"

// Repository persists dataset metadata
type Repository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	GetByHash(ctx context.Context, hash string) (*domain.Dataset, error)
	GetByFilename(ctx context.Context, filename string) (*domain.Dataset, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	Save(ctx context.Context, dataset *domain.Dataset) error
}

// FileStore stores uploads and derived files
type FileStore interface {
	SaveUpload(ctx context.Context, fileID string, filename string, reader io.Reader) (*storage.FileMetadata, error)
	RemoveUpload(fileID string) error
	SaveProcessedFile(ctx context.Context, datasetID string, fileType string, filename string, data []byte) (string, error)
}

// TableParser parses stored files by extension
type TableParser interface {
	IsSupported(fileExt string) bool
	ParseFile(ctx context.Context, filePath string) (*parsers.Table, error)
}

// ModelTrainer trains and registers a model from a dataset file
type ModelTrainer interface {
	TrainAndSave(ctx context.Context, datasetPath string) (*domain.ModelArtifact, error)
}

// UploadResult is returned by Upload
type UploadResult struct {
	Dataset   *domain.Dataset    `json:"dataset"`
	Profile   *profiling.Profile `json:"profile,omitempty"`
	Duplicate bool               `json:"duplicate"`
}

// CleanResult is returned by Clean
type CleanResult struct {
	Summary    *refinery.CleanSummary `json:"summary"`
	OutputPath string                 `json:"output_path"`
	Preview    [][]string             `json:"preview"`
}

// Service manages uploaded datasets
type Service struct {
	repo    Repository
	files   FileStore
	parser  TableParser
	trainer ModelTrainer
	logger  *slog.Logger
}

// NewService creates a new dataset service
func NewService(repo Repository, files FileStore, parser TableParser, trainer ModelTrainer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		repo:    repo,
		files:   files,
		parser:  parser,
		trainer: trainer,
		logger:  logger,
	}
}

// Upload stores, parses and profiles a file. Uploading content that is
// already stored returns the existing dataset.
func (s *Service) Upload(ctx context.Context, filename string, reader io.Reader) (*UploadResult, error) {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !s.parser.IsSupported(ext) {
		return nil, apperrors.UnsupportedFormat(ext)
	}

	id := uuid.New()
	meta, err := s.files.SaveUpload(ctx, id.String(), filename, reader)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to store upload")
	}

	existing, err := s.repo.GetByHash(ctx, meta.Hash)
	if err != nil {
		s.rollback(id)
		return nil, err
	}
	if existing != nil {
		s.rollback(id)
		s.logger.Info("duplicate upload",
			slog.String("filename", filename),
			slog.String("dataset_id", existing.ID.String()))
		return &UploadResult{Dataset: existing, Duplicate: true}, nil
	}

	table, err := s.parser.ParseFile(ctx, meta.StoredPath)
	if err != nil {
		s.rollback(id)
		return nil, apperrors.DatasetError("failed to parse dataset", err).
			WithDetails("filename", filename)
	}

	profile := profiling.ProfileTable(table)
	columns, _ := json.Marshal(table.Columns)
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		s.rollback(id)
		return nil, apperrors.InternalWrap(err, "failed to encode profile")
	}

	dataset := &domain.Dataset{
		ID:               id,
		OriginalFilename: filename,
		StoredPath:       meta.StoredPath,
		FileHash:         meta.Hash,
		Format:           table.Format,
		Status:           domain.DatasetStatusProfiled,
		TotalRows:        len(table.Rows),
		Columns:          datatypes.JSON(columns),
		Profile:          datatypes.JSON(profileJSON),
	}

	if err := s.repo.Create(ctx, dataset); err != nil {
		s.rollback(id)
		return nil, err
	}

	s.logger.Info("dataset uploaded",
		slog.String("dataset_id", id.String()),
		slog.String("filename", filename),
		slog.Int("rows", dataset.TotalRows),
		slog.Int("issues", len(profile.Issues)))

	return &UploadResult{Dataset: dataset, Profile: profile}, nil
}

func (s *Service) rollback(id uuid.UUID) {
	if err := s.files.RemoveUpload(id.String()); err != nil {
		s.logger.Warn("failed to remove upload",
			slog.String("file_id", id.String()),
			slog.Any("error", err))
	}
}

// Get returns the latest dataset uploaded under filename
func (s *Service) Get(ctx context.Context, filename string) (*domain.Dataset, error) {
	return s.repo.GetByFilename(ctx, filename)
}

// List returns all datasets
func (s *Service) List(ctx context.Context) ([]domain.Dataset, error) {
	return s.repo.List(ctx)
}

// LoadTable parses the stored file of a dataset
func (s *Service) LoadTable(ctx context.Context, filename string) (*parsers.Table, error) {
	dataset, err := s.repo.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, dataset)
}

func (s *Service) load(ctx context.Context, dataset *domain.Dataset) (*parsers.Table, error) {
	table, err := s.parser.ParseFile(ctx, dataset.StoredPath)
	if err != nil {
		return nil, apperrors.DatasetError("failed to load dataset", err).
			WithDetails("filename", dataset.OriginalFilename)
	}
	return table, nil
}

// Profile recomputes the EDA profile of a stored dataset
func (s *Service) Profile(ctx context.Context, filename string) (*profiling.Profile, error) {
	table, err := s.LoadTable(ctx, filename)
	if err != nil {
		return nil, err
	}
	return profiling.ProfileTable(table), nil
}

// Train fits a model on a stored dataset and records the outcome on it
func (s *Service) Train(ctx context.Context, filename string) (*domain.ModelArtifact, error) {
	dataset, err := s.repo.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}

	artifact, trainErr := s.trainer.TrainAndSave(ctx, dataset.StoredPath)
	if trainErr != nil {
		dataset.Status = domain.DatasetStatusFailed
	} else {
		dataset.Status = domain.DatasetStatusTrained
		dataset.LastModelPath = artifact.FilePath
	}

	if err := s.repo.Save(ctx, dataset); err != nil {
		s.logger.Error("failed to update dataset status",
			slog.String("dataset_id", dataset.ID.String()),
			slog.Any("error", err))
		if trainErr == nil {
			return nil, err
		}
	}

	if trainErr != nil {
		return nil, trainErr
	}
	return artifact, nil
}

// Clean runs a refinery over one text column and stores the result as a
// processed CSV next to the dataset
func (s *Service) Clean(ctx context.Context, filename, column, version string) (*CleanResult, error) {
	if version == "" {
		version = DefaultCleaner
	}
	pipeline, err := refinery.NewPipeline(version, nil)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	dataset, err := s.repo.GetByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	table, err := s.load(ctx, dataset)
	if err != nil {
		return nil, err
	}

	summary, err := pipeline.CleanColumn(table, column)
	if err != nil {
		return nil, err
	}

	data, err := encodeCSV(table)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to encode cleaned dataset")
	}

	stem := strings.TrimSuffix(dataset.OriginalFilename, filepath.Ext(dataset.OriginalFilename))
	path, err := s.files.SaveProcessedFile(ctx, dataset.ID.String(), "cleaned", stem+"_cleaned.csv", data)
	if err != nil {
		return nil, apperrors.PersistenceFailure("cleaned dataset", err)
	}

	preview := make([][]string, 0, 10)
	preview = append(preview, []string{column, summary.OutputColumn})
	src, dst := table.ColumnIndex(column), table.ColumnIndex(summary.OutputColumn)
	for i, row := range table.Rows {
		if i >= 10 {
			break
		}
		preview = append(preview, []string{row[src], row[dst]})
	}

	s.logger.Info("column cleaned",
		slog.String("dataset", filename),
		slog.String("column", column),
		slog.String("version", summary.Version),
		slog.Int("rows_changed", summary.RowsChanged))

	return &CleanResult{Summary: summary, OutputPath: path, Preview: preview}, nil
}

func encodeCSV(table *parsers.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
