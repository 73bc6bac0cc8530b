package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Model
	ModelSpecPath string // YAML model spec (policies, artifact keys)
	ModelFormat   string // xgboost, lightgbm

	// Artifacts
	Artifacts ArtifactConfig

	// Feature store: "artifacts" reads the parquet snapshot, "postgres" reads the tables
	FeatureStoreSource string

	// Database (only required for FEATURE_STORE_SOURCE=postgres)
	Database DatabaseConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string

	// Rate limiting (0 disables)
	RateLimitRPS   float64
	RateLimitBurst int

	// Scheduler
	Scheduler SchedulerConfig
}

// SchedulerConfig holds cron expressions (seconds first) and retry policy
type SchedulerConfig struct {
	SnapshotRefresh string
	NationalRefresh string
	MaxRetries      int
	RetryDelay      time.Duration
}

// ArtifactConfig describes where trained artifacts live
type ArtifactConfig struct {
	Source string // file, s3
	Dir    string

	S3 S3Config
}

// S3Config holds S3 (or S3-compatible) artifact bucket settings
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		ModelSpecPath: getEnv("MODEL_SPEC_PATH", ""),
		ModelFormat:   getEnv("MODEL_FORMAT", "xgboost"),

		Artifacts: ArtifactConfig{
			Source: getEnv("ARTIFACT_SOURCE", "file"),
			Dir:    getEnv("ARTIFACT_DIR", "artifacts"),
			S3: S3Config{
				Bucket:          getEnv("S3_BUCKET", ""),
				Region:          getEnv("S3_REGION", "us-east-1"),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				Prefix:          getEnv("S3_PREFIX", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
			},
		},

		FeatureStoreSource: getEnv("FEATURE_STORE_SOURCE", "artifacts"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		Scheduler: SchedulerConfig{
			SnapshotRefresh: getEnv("SCHEDULE_SNAPSHOT_REFRESH", "0 0 2 * * *"),
			NationalRefresh: getEnv("SCHEDULE_NATIONAL_REFRESH", "0 30 3 * * 1"),
			MaxRetries:      getEnvAsInt("SCHEDULER_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("SCHEDULER_RETRY_DELAY", "1m"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.ModelFormat {
	case "xgboost", "lightgbm":
	default:
		return fmt.Errorf("MODEL_FORMAT must be one of: xgboost, lightgbm")
	}

	switch c.Artifacts.Source {
	case "file":
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("ARTIFACT_DIR is required when ARTIFACT_SOURCE=file")
		}
	case "s3":
		if c.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARTIFACT_SOURCE=s3")
		}
	default:
		return fmt.Errorf("ARTIFACT_SOURCE must be one of: file, s3")
	}

	switch c.FeatureStoreSource {
	case "artifacts":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when FEATURE_STORE_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("FEATURE_STORE_SOURCE must be one of: artifacts, postgres")
	}

	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative")
	}

	if c.Scheduler.MaxRetries < 0 {
		return fmt.Errorf("SCHEDULER_MAX_RETRIES must not be negative")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
