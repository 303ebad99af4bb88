package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Extraction service
	ExtractorURL     string
	ExtractorTimeout time.Duration
	UpstreamBaseURL  string

	// Import
	ImportMaxPages    int
	ImportHorizonDays int
	MaxRetries        int           // Retries after the first attempt (default: 5)
	RetryBaseDelay    time.Duration // Delay unit, multiplied by the retry number (default: 30s)

	// Enrichment
	EnrichWorkers   int
	EnrichQueueSize int
	EnrichDedupTTL  time.Duration

	// Cleanup
	CleanupDays int // Releases older than this are deleted (default: 7)

	// Schedules (cron expressions)
	ImportSchedule  string
	CleanupSchedule string
	EnrichSchedule  string

	// Database
	DatabaseDriver string // sqlite or postgres
	DatabaseDSN    string // defaults to $CONFIG_DIR/releasarr.db

	// Server
	ServerPort string

	// Logging
	LogLevel  string
	LogFormat string

	// Tracing
	TraceSampleRatio float64
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	setDefaults()

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "releasarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := fromViper()
	if config.DatabaseDSN == "" && config.DatabaseDriver == "sqlite" {
		config.DatabaseDSN = "file:" + filepath.Join(configDir, "releasarr.db") + "?_foreign_keys=on"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults() {
	viper.SetDefault("EXTRACTOR_URL", "http://crawler:11235/llm")
	viper.SetDefault("EXTRACTOR_TIMEOUT_SECONDS", 300)
	viper.SetDefault("UPSTREAM_BASE_URL", "https://www.tvmaze.com")
	viper.SetDefault("IMPORT_MAX_PAGES", 50)
	viper.SetDefault("IMPORT_HORIZON_DAYS", 90)
	viper.SetDefault("IMPORT_MAX_RETRIES", 5)
	viper.SetDefault("RETRY_BASE_DELAY_SECONDS", 30)
	viper.SetDefault("ENRICH_WORKERS", 4)
	viper.SetDefault("ENRICH_QUEUE_SIZE", 1000)
	viper.SetDefault("ENRICH_DEDUP_MINUTES", 30)
	viper.SetDefault("CLEANUP_DAYS", 7)
	viper.SetDefault("IMPORT_SCHEDULE", "0 */6 * * *")
	viper.SetDefault("CLEANUP_SCHEDULE", "30 3 * * *")
	viper.SetDefault("ENRICH_SCHEDULE", "15 * * * *")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("TRACE_SAMPLE_RATIO", 1.0)
}

func fromViper() *Config {
	return &Config{
		ExtractorURL:     viper.GetString("EXTRACTOR_URL"),
		ExtractorTimeout: time.Duration(viper.GetInt("EXTRACTOR_TIMEOUT_SECONDS")) * time.Second,
		UpstreamBaseURL:  viper.GetString("UPSTREAM_BASE_URL"),

		ImportMaxPages:    viper.GetInt("IMPORT_MAX_PAGES"),
		ImportHorizonDays: viper.GetInt("IMPORT_HORIZON_DAYS"),
		MaxRetries:        viper.GetInt("IMPORT_MAX_RETRIES"),
		RetryBaseDelay:    time.Duration(viper.GetInt("RETRY_BASE_DELAY_SECONDS")) * time.Second,

		EnrichWorkers:   viper.GetInt("ENRICH_WORKERS"),
		EnrichQueueSize: viper.GetInt("ENRICH_QUEUE_SIZE"),
		EnrichDedupTTL:  time.Duration(viper.GetInt("ENRICH_DEDUP_MINUTES")) * time.Minute,

		CleanupDays: viper.GetInt("CLEANUP_DAYS"),

		ImportSchedule:  viper.GetString("IMPORT_SCHEDULE"),
		CleanupSchedule: viper.GetString("CLEANUP_SCHEDULE"),
		EnrichSchedule:  viper.GetString("ENRICH_SCHEDULE"),

		DatabaseDriver: viper.GetString("DATABASE_DRIVER"),
		DatabaseDSN:    viper.GetString("DATABASE_DSN"),

		ServerPort: viper.GetString("SERVER_PORT"),

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),

		TraceSampleRatio: viper.GetFloat64("TRACE_SAMPLE_RATIO"),
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	if c.ExtractorURL == "" {
		return fmt.Errorf("EXTRACTOR_URL is required")
	}
	if c.UpstreamBaseURL == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL is required")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for postgres")
	}
	if c.ImportMaxPages < 1 {
		return fmt.Errorf("IMPORT_MAX_PAGES must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("IMPORT_MAX_RETRIES can't be negative")
	}
	if c.EnrichWorkers < 1 {
		return fmt.Errorf("ENRICH_WORKERS must be positive")
	}
	return nil
}
