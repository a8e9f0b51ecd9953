package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandroruanova/automl-service/internal/pkg/config"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetBytes when the key is absent
var ErrCacheMiss = errors.New("cache miss")

const (
	connectAttempts = 3
	connectBackoff  = time.Second
)

// RedisCache is the key-value store behind the model cache
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func redisOptions(cfg *config.CacheConfig) *redis.Options {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return &redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  seconds(cfg.DialTimeout),
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
}

// NewRedisCache connects to Redis, retrying a few times while the broker
// comes up
func NewRedisCache(cfg *config.CacheConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(redisOptions(cfg))

	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = client.Ping(ctx).Err()
		cancel()
		if err == nil {
			break
		}
		logger.Warn("redis not reachable",
			slog.String("addr", cfg.GetRedisAddr()),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		if attempt < connectAttempts {
			time.Sleep(connectBackoff * time.Duration(attempt))
		}
	}
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.GetRedisAddr(), err)
	}

	logger.Info("redis connection established",
		slog.String("addr", cfg.GetRedisAddr()),
		slog.Int("db", cfg.DB))

	return &RedisCache{client: client, logger: logger}, nil
}

// Close closes the connection pool
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Set stores value under key for ttl; a zero ttl never expires
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// GetBytes returns the raw value or ErrCacheMiss
func (r *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

// Delete removes keys; absent keys are ignored
func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Health pings Redis and reports latency and pool usage
func (r *RedisCache) Health(ctx context.Context) map[string]interface{} {
	start := time.Now()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return map[string]interface{}{"status": "down", "error": err.Error()}
	}

	pool := r.client.PoolStats()
	return map[string]interface{}{
		"status":      "up",
		"latency":     time.Since(start).String(),
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
		"timeouts":    pool.Timeouts,
	}
}
