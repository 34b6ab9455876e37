package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	App        AppConfig
	Versioning VersioningConfig
	Retention  RetentionConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

// VersioningConfig holds the knobs for full-vs-delta storage selection.
type VersioningConfig struct {
	// FullSnapshotInterval forces a full snapshot every N versions.
	FullSnapshotInterval int
	// MaxChangeRatio above which a delta is not attempted (0..1).
	MaxChangeRatio float64
	// MinDeltaSavings is the minimum fraction a delta must save over a
	// full snapshot to be worth storing (0..1).
	MinDeltaSavings float64
	// MaxContentBytes caps uncompressed content size accepted for a save.
	MaxContentBytes int64
}

// RetentionConfig holds the tiered retention windows and job schedules.
type RetentionConfig struct {
	KeepDays         int // CleanOldVersions default horizon
	DayBucketAfter   int // days; versions older than this are thinned per-day
	WeekBucketAfter  int // days; versions older than this are thinned per-week
	MaxAgeDays       int // auto-saves older than this are deleted outright
	DailySchedule    string
	ThinningSchedule string
	DeletesPerSecond int // pacing for thinning deletes
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Versioning: VersioningConfig{
			FullSnapshotInterval: getEnvAsInt("VERSION_FULL_INTERVAL", 10),
			MaxChangeRatio:       getEnvAsFloat("VERSION_MAX_CHANGE_RATIO", 0.3),
			MinDeltaSavings:      getEnvAsFloat("VERSION_MIN_DELTA_SAVINGS", 0.2),
			MaxContentBytes:      int64(getEnvAsInt("VERSION_MAX_CONTENT_BYTES", 10*1024*1024)),
		},
		Retention: RetentionConfig{
			KeepDays:         getEnvAsInt("RETENTION_KEEP_DAYS", 30),
			DayBucketAfter:   getEnvAsInt("RETENTION_DAY_BUCKET_AFTER", 30),
			WeekBucketAfter:  getEnvAsInt("RETENTION_WEEK_BUCKET_AFTER", 90),
			MaxAgeDays:       getEnvAsInt("RETENTION_MAX_AGE_DAYS", 365),
			DailySchedule:    getEnv("RETENTION_DAILY_CRON", "0 0 1 * * *"),
			ThinningSchedule: getEnv("RETENTION_THINNING_CRON", "0 30 2 * * *"),
			DeletesPerSecond: getEnvAsInt("RETENTION_DELETES_PER_SECOND", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.Versioning.FullSnapshotInterval < 1 {
		return fmt.Errorf("VERSION_FULL_INTERVAL must be >= 1")
	}
	if c.Retention.DayBucketAfter >= c.Retention.WeekBucketAfter {
		return fmt.Errorf("RETENTION_DAY_BUCKET_AFTER must be < RETENTION_WEEK_BUCKET_AFTER")
	}
	return nil
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
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
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
		log.Printf("Warning: Invalid float for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}
