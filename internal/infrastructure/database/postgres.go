package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresDB owns the GORM connection shared by the repositories
type PostgresDB struct {
	DB     *gorm.DB
	logger *slog.Logger
}

func gormConfig(cfg *config.DatabaseConfig) *gorm.Config {
	level := gormlogger.Silent
	if cfg.LogLevel == "debug" {
		level = gormlogger.Info
	}

	return &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		// Feedback ordering and model versions compare timestamps, so keep them in UTC.
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// NewPostgresDB opens the pool and verifies it with a ping
func NewPostgresDB(cfg *config.DatabaseConfig, logger *slog.Logger) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MinConnections)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.MaxConnIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("database connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database))

	return &PostgresDB{DB: db, logger: logger}, nil
}

// Close closes the pool
func (db *PostgresDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database and reports pool usage
func (db *PostgresDB) Health(ctx context.Context) map[string]interface{} {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return map[string]interface{}{"status": "down", "error": err.Error()}
	}

	stats := sqlDB.Stats()
	return map[string]interface{}{
		"status":           "up",
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
	}
}

// Migrate creates or updates the feedback, model, dataset and run tables
func (db *PostgresDB) Migrate() error {
	models := domain.Models()
	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db.logger.Info("migrations completed", slog.Int("tables", len(models)))
	return nil
}
