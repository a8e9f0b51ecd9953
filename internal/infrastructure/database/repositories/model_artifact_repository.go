package repositories

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	apperrors "github.com/alejandroruanova/automl-service/internal/pkg/errors"
	"gorm.io/gorm"
)

// ModelArtifactRepository is the model registry. Rows are only ever inserted.
type ModelArtifactRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewModelArtifactRepository creates a new repository instance
func NewModelArtifactRepository(db *gorm.DB, logger *slog.Logger) *ModelArtifactRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &ModelArtifactRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new artifact row
func (r *ModelArtifactRepository) Create(ctx context.Context, artifact *domain.ModelArtifact) error {
	if err := r.db.WithContext(ctx).Create(artifact).Error; err != nil {
		r.logger.Error("failed to insert model artifact",
			slog.String("name", artifact.Name),
			slog.String("filepath", artifact.FilePath),
			slog.Any("error", err))
		return apperrors.PersistenceFailure("model metadata", err)
	}

	r.logger.Info("model artifact registered",
		slog.Uint64("artifact_id", uint64(artifact.ID)),
		slog.String("name", artifact.Name),
		slog.Float64("accuracy", artifact.Accuracy))

	return nil
}

// LatestByName returns the most recently registered artifact with the given name
func (r *ModelArtifactRepository) LatestByName(ctx context.Context, name string) (*domain.ModelArtifact, error) {
	var artifact domain.ModelArtifact

	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at DESC, id DESC").
		First(&artifact).
		Error

	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.ModelNotFound(name)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return &artifact, nil
}

// CountByName counts artifacts registered under a name
func (r *ModelArtifactRepository) CountByName(ctx context.Context, name string) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.ModelArtifact{}).
		Where("name = ?", name).
		Count(&count).
		Error

	if err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}

	return count, nil
}

// List returns all artifacts, newest first
func (r *ModelArtifactRepository) List(ctx context.Context) ([]domain.ModelArtifact, error) {
	var artifacts []domain.ModelArtifact

	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&artifacts).
		Error

	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	return artifacts, nil
}
