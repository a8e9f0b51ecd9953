package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root application configuration
type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`
	// LogLevel overrides the environment's default level (debug, info, warn, error)
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Storage  StorageConfig
	Retrain  RetrainConfig
	LLM      LLMConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string
	Port            string
	MaxUploadSizeMB int64
	ShutdownTimeout int // seconds
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	LogLevel        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // minutes
	MaxConnIdleTime int // minutes
}

// CacheConfig holds Redis cache settings
type CacheConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
	ModelTTL     int // seconds
}

// QueueConfig holds Asynq settings
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	Concurrency    int
	StrictPriority bool
}

// StorageConfig holds local file storage settings
type StorageConfig struct {
	BasePath string
}

// RetrainConfig controls the feedback retraining loop and the trainer
type RetrainConfig struct {
	Threshold int
	Schedule  string
	// Seed is nil unless TRAINING_SEED is set, so splits are random by default.
	Seed  *int64
	Trees int
	// ModelCacheSize bounds the decoded models a process keeps in memory
	ModelCacheSize int
}

// LLMConfig holds settings for the OpenAI-compatible assistant endpoint
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether an API key was configured
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	setDefaults()
	viper.AutomaticEnv()

	cfg := &Config{
		Environment: viper.GetString("ENV"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Host:            viper.GetString("SERVER_HOST"),
			Port:            viper.GetString("SERVER_PORT"),
			MaxUploadSizeMB: viper.GetInt64("MAX_FILE_SIZE_MB"),
			ShutdownTimeout: viper.GetInt("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			LogLevel:        viper.GetString("DB_LOG_LEVEL"),
			MaxConnections:  viper.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  viper.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: viper.GetInt("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime: viper.GetInt("DB_MAX_CONN_IDLE_TIME"),
		},
		Cache: CacheConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetInt("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			DialTimeout:  viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("REDIS_WRITE_TIMEOUT"),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			ModelTTL:     viper.GetInt("MODEL_CACHE_TTL"),
		},
		Queue: QueueConfig{
			RedisHost:      viper.GetString("REDIS_HOST"),
			RedisPort:      viper.GetInt("REDIS_PORT"),
			RedisPassword:  viper.GetString("REDIS_PASSWORD"),
			RedisDB:        viper.GetInt("QUEUE_REDIS_DB"),
			DialTimeout:    viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:    viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("REDIS_WRITE_TIMEOUT"),
			Concurrency:    viper.GetInt("WORKER_CONCURRENCY"),
			StrictPriority: viper.GetBool("WORKER_STRICT_PRIORITY"),
		},
		Storage: StorageConfig{
			BasePath: viper.GetString("STORAGE_PATH"),
		},
		Retrain: RetrainConfig{
			Threshold:      viper.GetInt("RETRAIN_THRESHOLD"),
			Schedule:       viper.GetString("RETRAIN_SCHEDULE"),
			Trees:          viper.GetInt("TRAINING_TREES"),
			ModelCacheSize: viper.GetInt("MODEL_MEMORY_CACHE_SIZE"),
		},
		LLM: LLMConfig{
			APIKey:  viper.GetString("OPENAI_API_KEY"),
			BaseURL: viper.GetString("OPENAI_BASE_URL"),
			Model:   viper.GetString("OPENAI_MODEL"),
		},
	}

	if viper.IsSet("TRAINING_SEED") {
		seed := viper.GetInt64("TRAINING_SEED")
		cfg.Retrain.Seed = &seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 15)
	viper.SetDefault("MAX_FILE_SIZE_MB", 100)

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_NAME", "automl")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "silent")
	viper.SetDefault("DB_MAX_CONNECTIONS", 20)
	viper.SetDefault("DB_MIN_CONNECTIONS", 2)
	viper.SetDefault("DB_MAX_CONN_LIFETIME", 30)
	viper.SetDefault("DB_MAX_CONN_IDLE_TIME", 5)

	// Redis defaults
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("QUEUE_REDIS_DB", 1)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	viper.SetDefault("MODEL_CACHE_TTL", 300)

	// Worker defaults
	viper.SetDefault("WORKER_CONCURRENCY", 2)
	viper.SetDefault("WORKER_STRICT_PRIORITY", false)

	viper.SetDefault("STORAGE_PATH", "./data")

	// Retraining defaults
	viper.SetDefault("RETRAIN_THRESHOLD", 5)
	viper.SetDefault("RETRAIN_SCHEDULE", "@every 24h")
	viper.SetDefault("TRAINING_TREES", 100)
	viper.SetDefault("MODEL_MEMORY_CACHE_SIZE", 8)

	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Retrain.Threshold <= 0 {
		return fmt.Errorf("RETRAIN_THRESHOLD must be positive, got %d", c.Retrain.Threshold)
	}
	if c.Retrain.Trees <= 0 {
		return fmt.Errorf("TRAINING_TREES must be positive, got %d", c.Retrain.Trees)
	}
	if c.Retrain.ModelCacheSize <= 0 {
		return fmt.Errorf("MODEL_MEMORY_CACHE_SIZE must be positive, got %d", c.Retrain.ModelCacheSize)
	}
	if c.Storage.BasePath == "" {
		return fmt.Errorf("STORAGE_PATH is required")
	}
	return nil
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// GetRedisAddr returns host:port for the cache
func (c *CacheConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetRedisAddr returns host:port for the queue broker
func (c *QueueConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ServerAddr returns the HTTP listen address
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Server: %s", c.ServerAddr())
	log.Printf("  Database: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)
	log.Printf("  Redis: %s (cache DB: %d, queue DB: %d)", c.Cache.GetRedisAddr(), c.Cache.DB, c.Queue.RedisDB)
	log.Printf("  Storage: %s", c.Storage.BasePath)
	log.Printf("  Retrain threshold: %d, schedule: %s", c.Retrain.Threshold, c.Retrain.Schedule)
	if c.Retrain.Seed != nil {
		log.Printf("  Training seed: %d", *c.Retrain.Seed)
	}

	if c.LLM.Enabled() {
		log.Printf("  OpenAI API Key: [CONFIGURED] (%s)", c.LLM.Model)
	} else {
		log.Printf("  OpenAI API Key: [NOT SET]")
	}
}
