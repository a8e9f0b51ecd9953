package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/api"
	"github.com/alejandroruanova/automl-service/internal/core/services/assistant"
	"github.com/alejandroruanova/automl-service/internal/core/services/datasets"
	"github.com/alejandroruanova/automl-service/internal/core/services/feedback"
	"github.com/alejandroruanova/automl-service/internal/core/services/prediction"
	"github.com/alejandroruanova/automl-service/internal/core/services/retraining"
	"github.com/alejandroruanova/automl-service/internal/core/services/training"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/cache"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/database"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/llm"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/storage"
	"github.com/alejandroruanova/automl-service/internal/metrics"
	"github.com/alejandroruanova/automl-service/internal/pkg/config"
)

const assistantPreviewRows = 20

// App holds the shared component graph of the server and the worker
type App struct {
	Config *config.Config

	DB    *database.PostgresDB
	Cache *cache.RedisCache

	Storage      *storage.LocalStorage
	Models       *cache.CachedModelRegistry
	Aggregator   *feedback.Aggregator
	Recorder     *feedback.Recorder
	Trainer      *training.Trainer
	Orchestrator *retraining.Orchestrator
	History      *retraining.History
	Predictions  *prediction.Service
	Datasets     *datasets.Service
	Assistant    *assistant.Service

	logger *slog.Logger
}

// New connects the stores and builds every service
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	metrics.Init()

	db, err := database.NewPostgresDB(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	redisCache, err := cache.NewRedisCache(&cfg.Cache, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	files, err := storage.NewLocalStorage(&storage.LocalStorageConfig{BasePath: cfg.Storage.BasePath}, logger)
	if err != nil {
		db.Close()
		redisCache.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	feedbackRepo := repositories.NewFeedbackRepository(db.DB, logger)
	modelRepo := repositories.NewModelArtifactRepository(db.DB, logger)
	datasetRepo := repositories.NewDatasetRepository(db.DB, logger)
	runRepo := repositories.NewRetrainRunRepository(db.DB, logger)

	models := cache.NewCachedModelRegistry(modelRepo, redisCache,
		time.Duration(cfg.Cache.ModelTTL)*time.Second, logger)

	parserFactory := parsers.NewParserFactory(parsers.DefaultParserConfig())

	trainer := training.NewTrainer(parserFactory, files, models, training.Config{
		Trees: cfg.Retrain.Trees,
		Seed:  cfg.Retrain.Seed,
	}, logger.With(slog.String("component", "trainer")))

	aggregator := feedback.NewAggregator(feedbackRepo, logger)
	recorder := feedback.NewRecorder(feedbackRepo, metrics.FeedbackCorrections, logger)
	builder := retraining.NewBuilder(feedbackRepo, files, logger)
	orchestrator := retraining.NewOrchestrator(aggregator, builder, trainer,
		cfg.Retrain.Threshold, metrics.Recorder{},
		logger.With(slog.String("component", "orchestrator")))
	history := retraining.NewHistory(orchestrator, runRepo, logger)

	predictions, err := prediction.NewService(models, files, recorder, metrics.Recorder{},
		cfg.Retrain.ModelCacheSize, logger)
	if err != nil {
		db.Close()
		redisCache.Close()
		return nil, err
	}
	datasetService := datasets.NewService(datasetRepo, files, parserFactory, trainer, logger)

	var chatModel assistant.ChatModel
	if cfg.LLM.Enabled() {
		chatModel = llm.NewClient(&cfg.LLM, logger)
	}
	assistantService := assistant.NewService(chatModel, datasetService,
		assistant.NewContextBuilder(assistantPreviewRows, logger), logger)

	return &App{
		Config:       cfg,
		DB:           db,
		Cache:        redisCache,
		Storage:      files,
		Models:       models,
		Aggregator:   aggregator,
		Recorder:     recorder,
		Trainer:      trainer,
		Orchestrator: orchestrator,
		History:      history,
		Predictions:  predictions,
		Datasets:     datasetService,
		Assistant:    assistantService,
		logger:       logger,
	}, nil
}

// Dependencies returns the HTTP handler wiring. queue may be nil.
func (a *App) Dependencies(queue api.RetrainQueue) api.Dependencies {
	deps := api.Dependencies{
		Datasets:    a.Datasets,
		Predictions: a.Predictions,
		Feedback:    a.Recorder,
		Stats:       a.Aggregator,
		Retrainer:   a.History,
		Runs:        a.History,
		Queue:       queue,
		Models:      a.Models,
		HealthChecks: map[string]api.HealthCheck{
			"database": a.DB.Health,
			"cache":    a.Cache.Health,
		},
		Threshold:       a.Config.Retrain.Threshold,
		MaxUploadSizeMB: a.Config.Server.MaxUploadSizeMB,
	}
	if a.Assistant.Enabled() {
		deps.Assistant = a.Assistant
	}
	return deps
}

// Close releases the store connections
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.logger.Error("failed to close cache", slog.Any("error", err))
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("error", err))
	}
}

