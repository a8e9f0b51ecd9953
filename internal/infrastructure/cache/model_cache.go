package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/core/domain"
)

const latestModelKeyPrefix = "automl:model:latest:"

// KeyValueStore is the subset of RedisCache the model cache needs
type KeyValueStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ModelRegistry is the persistent model registry
type ModelRegistry interface {
	Create(ctx context.Context, artifact *domain.ModelArtifact) error
	LatestByName(ctx context.Context, name string) (*domain.ModelArtifact, error)
	CountByName(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]domain.ModelArtifact, error)
}

// CachedModelRegistry fronts LatestByName with a read-through cache. Create
// invalidates the entry for the artifact's name. Cache failures are logged
// and the registry is used directly.
type CachedModelRegistry struct {
	registry ModelRegistry
	store    KeyValueStore
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCachedModelRegistry wraps registry with store
func NewCachedModelRegistry(registry ModelRegistry, store KeyValueStore, ttl time.Duration, logger *slog.Logger) *CachedModelRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedModelRegistry{
		registry: registry,
		store:    store,
		ttl:      ttl,
		logger:   logger,
	}
}

func latestModelKey(name string) string {
	return latestModelKeyPrefix + name
}

// Create registers the artifact and drops the cached latest entry
func (c *CachedModelRegistry) Create(ctx context.Context, artifact *domain.ModelArtifact) error {
	if err := c.registry.Create(ctx, artifact); err != nil {
		return err
	}

	if err := c.store.Delete(ctx, latestModelKey(artifact.Name)); err != nil {
		c.logger.Warn("failed to invalidate model cache",
			slog.String("name", artifact.Name),
			slog.Any("error", err))
	}
	return nil
}

// LatestByName returns the latest artifact, from cache when present
func (c *CachedModelRegistry) LatestByName(ctx context.Context, name string) (*domain.ModelArtifact, error) {
	key := latestModelKey(name)

	data, err := c.store.GetBytes(ctx, key)
	switch {
	case err == nil:
		var artifact domain.ModelArtifact
		if jsonErr := json.Unmarshal(data, &artifact); jsonErr == nil {
			return &artifact, nil
		}
		c.logger.Warn("discarding undecodable model cache entry", slog.String("key", key))
	case errors.Is(err, ErrCacheMiss):
	default:
		c.logger.Warn("model cache read failed",
			slog.String("key", key),
			slog.Any("error", err))
	}

	artifact, err := c.registry.LatestByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(artifact); err == nil {
		if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
			c.logger.Warn("model cache write failed",
				slog.String("key", key),
				slog.Any("error", err))
		}
	}

	return artifact, nil
}

// CountByName is not cached
func (c *CachedModelRegistry) CountByName(ctx context.Context, name string) (int64, error) {
	return c.registry.CountByName(ctx, name)
}

// List is not cached
func (c *CachedModelRegistry) List(ctx context.Context) ([]domain.ModelArtifact, error) {
	return c.registry.List(ctx)
}
