package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	"github.com/hibiken/asynq"
)

// Queue names, highest priority first
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

func redisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

// AsynqClient wraps the Asynq client for enqueuing tasks
type AsynqClient struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqClient creates a new Asynq client
func NewAsynqClient(cfg *config.QueueConfig, logger *slog.Logger) (*AsynqClient, error) {
	client := asynq.NewClient(redisOpt(cfg))

	logger.Info("asynq client created",
		slog.String("redis_addr", cfg.GetRedisAddr()),
		slog.Int("redis_db", cfg.RedisDB),
	)

	return &AsynqClient{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Asynq client
func (a *AsynqClient) Close() error {
	a.logger.Info("closing asynq client")
	return a.client.Close()
}

// EnqueueContext enqueues a task
func (a *AsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := a.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		a.logger.Error("failed to enqueue task",
			slog.String("task_type", task.Type()),
			slog.Any("error", err),
		)
		return nil, err
	}

	a.logger.Debug("task enqueued",
		slog.String("task_id", info.ID),
		slog.String("task_type", task.Type()),
		slog.String("queue", info.Queue),
	)

	return info, nil
}

// EnqueueRetrain enqueues a one-off feedback retraining run
func (a *AsynqClient) EnqueueRetrain(ctx context.Context, trigger string) (string, error) {
	task, err := NewRetrainFeedbackTask(trigger)
	if err != nil {
		return "", err
	}

	info, err := a.EnqueueContext(ctx, task, RetrainTaskOptions()...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// AsynqServer wraps the Asynq server for processing tasks
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewAsynqServer creates a new Asynq server
func NewAsynqServer(cfg *config.QueueConfig, logger *slog.Logger) (*AsynqServer, error) {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  1,
			},
			StrictPriority: cfg.StrictPriority,

			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					slog.String("task_type", task.Type()),
					slog.String("payload", string(task.Payload())),
					slog.Any("error", err),
				)
			}),

			HealthCheckFunc: func(e error) {
				if e != nil {
					logger.Error("health check failed", slog.Any("error", e))
				}
			},
			HealthCheckInterval: 20 * time.Second,

			ShutdownTimeout: 25 * time.Second,
		},
	)

	logger.Info("asynq server created",
		slog.String("redis_addr", cfg.GetRedisAddr()),
		slog.Int("concurrency", concurrency),
	)

	return &AsynqServer{
		server: server,
		mux:    asynq.NewServeMux(),
		logger: logger,
	}, nil
}

// Handle registers a handler for a task type
func (a *AsynqServer) Handle(pattern string, handler asynq.Handler) {
	a.mux.Handle(pattern, handler)
	a.logger.Debug("handler registered", slog.String("pattern", pattern))
}

// Use adds a middleware to the mux
func (a *AsynqServer) Use(middleware func(asynq.Handler) asynq.Handler) {
	a.mux.Use(middleware)
}

// Start runs the server; it blocks until shutdown
func (a *AsynqServer) Start() error {
	a.logger.Info("starting asynq server")
	if err := a.server.Run(a.mux); err != nil {
		return fmt.Errorf("failed to run asynq server: %w", err)
	}
	return nil
}

// Scheduler enqueues periodic tasks
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// NewScheduler creates a scheduler bound to the queue broker
func NewScheduler(cfg *config.QueueConfig, logger *slog.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("scheduled enqueue failed", slog.Any("error", err))
				return
			}
			logger.Info("scheduled task enqueued",
				slog.String("task_id", info.ID),
				slog.String("task_type", info.Type))
		},
	})

	return &Scheduler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RegisterRetrain schedules the feedback retraining task on a cron spec
// (e.g. "@every 24h" or "0 3 * * *")
func (s *Scheduler) RegisterRetrain(cronspec string) (string, error) {
	task, err := NewRetrainFeedbackTask(TriggerSchedule)
	if err != nil {
		return "", err
	}

	entryID, err := s.scheduler.Register(cronspec, task, RetrainTaskOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to register %s on %q: %w", TaskTypeRetrainFeedback, cronspec, err)
	}

	s.logger.Info("retraining scheduled",
		slog.String("entry_id", entryID),
		slog.String("schedule", cronspec))

	return entryID, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() error {
	return s.scheduler.Start()
}

// Shutdown stops the scheduler
func (s *Scheduler) Shutdown() {
	s.logger.Info("shutting down scheduler")
	s.scheduler.Shutdown()
}
