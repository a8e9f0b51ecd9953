package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandroruanova/automl-service/internal/app"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/alejandroruanova/automl-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.Initialize(cfg.Environment, cfg.LogLevel)
	cfg.LogConfig()

	if err := run(cfg); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run owns every resource it opens; deferred closes run before main exits
func run(cfg *config.Config) error {
	application, err := app.New(cfg, logger.NewServiceLogger("automl"))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	queueLogger := logger.NewServiceLogger("worker")

	server, err := queue.NewAsynqServer(&cfg.Queue, queueLogger)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	server.Use(worker.LoggingMiddleware(queueLogger))
	server.Handle(queue.TaskTypeRetrainFeedback, worker.NewRetrainHandler(application.History, queueLogger))

	if cfg.Retrain.Schedule != "" {
		scheduler := queue.NewScheduler(&cfg.Queue, queueLogger)
		if _, err := scheduler.RegisterRetrain(cfg.Retrain.Schedule); err != nil {
			return fmt.Errorf("invalid retrain schedule: %w", err)
		}
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer scheduler.Shutdown()
	}

	// Start blocks until SIGINT or SIGTERM, then drains in-flight tasks.
	return server.Start()
}
