package feedback

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
)

// Store is the feedback persistence the services depend on
type Store interface {
	Insert(ctx context.Context, record *domain.FeedbackRecord) error
	SetCorrection(ctx context.Context, id uint, correction string) error
	GetByID(ctx context.Context, id uint) (*domain.FeedbackRecord, error)
	CountCorrected(ctx context.Context) (int64, error)
	ListCorrected(ctx context.Context) ([]domain.FeedbackRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.FeedbackRecord, error)
}

// Aggregator decides whether enough corrections have accumulated to retrain
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:  store,
		logger: logger,
	}
}

// GetFeedbackStats counts corrected records and applies the threshold rule.
// It reads the store on every call.
func (a *Aggregator) GetFeedbackStats(ctx context.Context, threshold int) (domain.RetrainDecision, error) {
	count, err := a.store.CountCorrected(ctx)
	if err != nil {
		return domain.RetrainDecision{}, err
	}

	decision := domain.NewRetrainDecision(count, threshold)

	a.logger.Debug("feedback stats computed",
		slog.Int64("feedback_count", decision.FeedbackCount),
		slog.Int("threshold", decision.Threshold),
		slog.Bool("should_retrain", decision.ShouldRetrain))

	return decision, nil
}
