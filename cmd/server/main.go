package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandroruanova/automl-service/internal/api"
	"github.com/alejandroruanova/automl-service/internal/app"
	"github.com/alejandroruanova/automl-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	"github.com/alejandroruanova/automl-service/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.Initialize(cfg.Environment, cfg.LogLevel)
	cfg.LogConfig()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run owns every resource it opens; deferred closes run before main exits
func run(cfg *config.Config, log *slog.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.New(cfg, logger.NewServiceLogger("automl"))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	var retrainQueue api.RetrainQueue
	queueClient, err := queue.NewAsynqClient(&cfg.Queue, logger.NewServiceLogger("queue"))
	if err != nil {
		log.Warn("queue unavailable, async retraining disabled", slog.Any("error", err))
	} else {
		defer queueClient.Close()
		retrainQueue = queueClient
	}

	handler := api.NewHandler(application.Dependencies(retrainQueue), logger.NewServiceLogger("api"))
	router := api.NewRouter(handler, logger.NewServiceLogger("http"))

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-quit:
	}

	log.Info("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
