package repositories

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"gorm.io/gorm"
)

// FeedbackRepository is the GORM-backed feedback store
type FeedbackRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewFeedbackRepository creates a new repository instance
func NewFeedbackRepository(db *gorm.DB, logger *slog.Logger) *FeedbackRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &FeedbackRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a new feedback record; the store assigns the id
func (r *FeedbackRepository) Insert(ctx context.Context, record *domain.FeedbackRecord) error {
	record.ID = 0

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logger.Error("failed to insert feedback",
			slog.String("model", record.ModelName),
			slog.Any("error", err))
		return apperrors.StoreUnavailable(err)
	}

	r.logger.Debug("feedback recorded",
		slog.Uint64("feedback_id", uint64(record.ID)),
		slog.Bool("corrected", record.IsCorrected()))

	return nil
}

// SetCorrection sets (or overwrites) the user correction of an existing record.
// No other column is touched.
func (r *FeedbackRepository) SetCorrection(ctx context.Context, id uint, correction string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FeedbackRecord{}).
		Where("id = ?", id).
		Update("user_correction", correction)

	if result.Error != nil {
		r.logger.Error("failed to set correction",
			slog.Uint64("feedback_id", uint64(id)),
			slog.Any("error", result.Error))
		return apperrors.StoreUnavailable(result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.RecordNotFound("feedback record")
	}

	return nil
}

// GetByID loads a single record
func (r *FeedbackRepository) GetByID(ctx context.Context, id uint) (*domain.FeedbackRecord, error) {
	var record domain.FeedbackRecord

	err := r.db.WithContext(ctx).First(&record, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.RecordNotFound("feedback record")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &record, nil
}

// CountCorrected counts records that carry a user correction
func (r *FeedbackRepository) CountCorrected(ctx context.Context) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.FeedbackRecord{}).
		Where("user_correction IS NOT NULL").
		Count(&count).
		Error

	if err != nil {
		r.logger.Error("failed to count corrected feedback", slog.Any("error", err))
		return 0, apperrors.StoreUnavailable(err)
	}

	return count, nil
}

// ListCorrected returns every corrected record in insertion order
func (r *FeedbackRepository) ListCorrected(ctx context.Context) ([]domain.FeedbackRecord, error) {
	var records []domain.FeedbackRecord

	err := r.db.WithContext(ctx).
		Where("user_correction IS NOT NULL").
		Order("id ASC").
		Find(&records).
		Error

	if err != nil {
		r.logger.Error("failed to list corrected feedback", slog.Any("error", err))
		return nil, apperrors.StoreUnavailable(err)
	}

	return records, nil
}

// List returns a page of records, newest first
func (r *FeedbackRepository) List(ctx context.Context, limit, offset int) ([]domain.FeedbackRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []domain.FeedbackRecord

	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).
		Error

	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return records, nil
}
