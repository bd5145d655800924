package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatabaseURL     string
	RawDataDir      string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize int
	Workers   int

	// Outlier screening.
	OutlierMultiple   float64
	OutlierMode       domain.OutlierMode
	StatsWindowMonths int

	// Store retry budget for transient failures.
	RetryMaxAttempts int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parsePositiveInt("BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKERS", 1)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := parsePositiveInt("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	statsWindow, err := parsePositiveInt("STATS_WINDOW_MONTHS", 24)
	if err != nil {
		return nil, err
	}

	outlierMultiple, err := parsePositiveFloat("OUTLIER_MULTIPLE", 10)
	if err != nil {
		return nil, err
	}
	outlierMode, err := parseOutlierMode()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RawDataDir:      envOrDefault("RAW_DATA_DIR", "data/raw"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BatchSize: batchSize,
		Workers:   workers,

		OutlierMultiple:   outlierMultiple,
		OutlierMode:       outlierMode,
		StatsWindowMonths: statsWindow,

		RetryMaxAttempts: retryAttempts,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseOutlierMode() (domain.OutlierMode, error) {
	switch envOrDefault("OUTLIER_MODE", string(domain.OutlierModeDrop)) {
	case string(domain.OutlierModeDrop):
		return domain.OutlierModeDrop, nil
	case string(domain.OutlierModeFlag):
		return domain.OutlierModeFlag, nil
	default:
		return "", errors.New("invalid OUTLIER_MODE: want drop or flag")
	}
}
