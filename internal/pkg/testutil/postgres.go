// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// One container serves every test in the package binary; the reaper removes
// it when the binary exits.
var shared struct {
	once sync.Once
	dsn  string
	err  error
}

func startContainer() (string, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("automl_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return "", err
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}

// SetupPostgres returns a connection to the shared test database with the
// given models dropped and migrated fresh. Skipped with -short.
func SetupPostgres(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	shared.once.Do(func() {
		shared.dsn, shared.err = startContainer()
	})
	if shared.err != nil {
		t.Fatalf("failed to start postgres container: %v", shared.err)
	}

	db, err := gorm.Open(pgdriver.Open(shared.dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	if err := db.Migrator().DropTable(models...); err != nil {
		t.Fatalf("failed to reset test tables: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
