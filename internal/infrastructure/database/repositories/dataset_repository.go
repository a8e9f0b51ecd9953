package repositories

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"gorm.io/gorm"
)

// DatasetRepository persists uploaded dataset metadata
type DatasetRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewDatasetRepository creates a new repository instance
func NewDatasetRepository(db *gorm.DB, logger *slog.Logger) *DatasetRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DatasetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a dataset row
func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.Dataset) error {
	if err := r.db.WithContext(ctx).Create(dataset).Error; err != nil {
		r.logger.Error("failed to insert dataset",
			slog.String("filename", dataset.OriginalFilename),
			slog.Any("error", err))
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// GetByHash finds a dataset by content hash; returns nil, nil when absent
func (r *DatasetRepository) GetByHash(ctx context.Context, hash string) (*domain.Dataset, error) {
	var dataset domain.Dataset

	err := r.db.WithContext(ctx).Where("file_hash = ?", hash).First(&dataset).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &dataset, nil
}

// GetByFilename returns the latest upload with the given original filename
func (r *DatasetRepository) GetByFilename(ctx context.Context, filename string) (*domain.Dataset, error) {
	var dataset domain.Dataset

	err := r.db.WithContext(ctx).
		Where("original_filename = ?", filename).
		Order("created_at DESC").
		First(&dataset).
		Error

	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.RecordNotFound("dataset")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &dataset, nil
}

// List returns all datasets, newest first
func (r *DatasetRepository) List(ctx context.Context) ([]domain.Dataset, error) {
	var datasets []domain.Dataset

	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&datasets).Error; err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return datasets, nil
}

// Save updates a dataset row
func (r *DatasetRepository) Save(ctx context.Context, dataset *domain.Dataset) error {
	if err := r.db.WithContext(ctx).Save(dataset).Error; err != nil {
		r.logger.Error("failed to update dataset",
			slog.String("dataset_id", dataset.ID.String()),
			slog.Any("error", err))
		return apperrors.StoreUnavailable(err)
	}
	return nil
}
