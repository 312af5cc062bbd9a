// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the compliance database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Scheduled jobs (cron expressions with seconds field; empty disables the job)
	PortfolioSweepSchedule string
	MaintenanceSchedule    string
	BackupSchedule         string

	// Optional websocket market-data feed
	PriceFeedURL string

	// Resolved alerts older than this many days are pruned by maintenance
	AlertRetentionDays int

	// Optional offsite backup (S3-compatible, e.g. Cloudflare R2)
	Backup *BackupConfig
}

// BackupConfig holds offsite backup configuration
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // S3-compatible endpoint URL
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionCount  int // How many archives to keep remotely
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to absolute path, ensure it exists
	dataDir := getEnv("FUNDGUARD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("PORT", 8000),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		PortfolioSweepSchedule: getEnv("PORTFOLIO_SWEEP_SCHEDULE", "0 0 18 * * MON-FRI"),
		MaintenanceSchedule:    getEnv("MAINTENANCE_SCHEDULE", "0 0 * * * *"),
		BackupSchedule:         getEnv("BACKUP_SCHEDULE", "0 30 23 * * *"),
		PriceFeedURL:           getEnv("PRICE_FEED_URL", ""),
		AlertRetentionDays:     getEnvAsInt("ALERT_RETENTION_DAYS", 180),
		Backup:                 loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("backup enabled but BACKUP_BUCKET not set")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("backup enabled but credentials not set")
		}
	}
	return nil
}

// DatabasePath returns the path of the compliance database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "compliance.db")
}

// loadBackupConfig loads offsite backup configuration
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		RetentionCount:  getEnvAsInt("BACKUP_RETENTION_COUNT", 14),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
