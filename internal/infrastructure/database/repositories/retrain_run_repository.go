package repositories

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"gorm.io/gorm"
)

// RetrainRunRepository stores the retraining run history
type RetrainRunRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRetrainRunRepository creates a new repository instance
func NewRetrainRunRepository(db *gorm.DB, logger *slog.Logger) *RetrainRunRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &RetrainRunRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a run
func (r *RetrainRunRepository) Create(ctx context.Context, run *domain.RetrainRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.logger.Error("failed to insert retrain run",
			slog.String("status", run.Status),
			slog.Any("error", err))
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// LatestRetrained returns the newest run that produced a model; nil, nil when none
func (r *RetrainRunRepository) LatestRetrained(ctx context.Context) (*domain.RetrainRun, error) {
	var run domain.RetrainRun

	err := r.db.WithContext(ctx).
		Where("status = ?", "retrained").
		Order("created_at DESC").
		First(&run).
		Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &run, nil
}

// List returns the most recent runs, newest first
func (r *RetrainRunRepository) List(ctx context.Context, limit int) ([]domain.RetrainRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []domain.RetrainRun

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).
		Error

	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return runs, nil
}
